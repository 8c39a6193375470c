package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"skhpc/internal/agent"
	"skhpc/internal/catalog"
	"skhpc/internal/config"
	"skhpc/internal/domain"
	"skhpc/internal/events"
	"skhpc/internal/export"
	"skhpc/internal/ledger"
	"skhpc/internal/logging"
	"skhpc/internal/metrics"
	"skhpc/internal/service"
	"skhpc/internal/session"
	"skhpc/internal/sheets"
	"skhpc/internal/status"
	"skhpc/internal/tools"
	"skhpc/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App wires the whole booking stack: catalog, ledger, services, sessions,
// agent and the mirror worker. The three binaries share this composition and
// differ only in the front end they attach.
type App struct {
	Cfg    *config.Config
	Logger *zerolog.Logger

	Catalog      *catalog.Catalog
	Ledger       *ledger.Ledger
	Availability *service.AvailabilityService
	Recommender  *service.RecommendationService
	Transactions *service.TransactionService
	Billing      *service.BillingService
	Status       *status.Service
	Exporter     *export.Exporter
	Chat         *service.ChatService
	EventBus     *events.EventBus
	Mirror       *worker.MirrorWorker

	logCloser   io.Closer
	modelClient agent.ModelClient
	redisClient *redis.Client
	storeCloser io.Closer
}

// Load reads config and builds the logger. Split from New so binaries can log
// during their own setup steps.
func Load() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, logger, closer, nil
}

// New assembles the application. Redis and Sheets are optional: without redis
// sessions fall back to memory, without Google credentials the mirror worker
// is skipped.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, logCloser io.Closer) (*App, error) {
	a := &App{Cfg: cfg, Logger: logger, logCloser: logCloser}

	metrics.Register()

	cat, err := catalog.Load(cfg.Inventory.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load gpu inventory: %w", err)
	}
	a.Catalog = cat

	store, err := a.openStore(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	a.Ledger = ledger.New(store, logging.Component(logger, "ledger"))
	if err := a.Ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load booking ledger: %w", err)
	}

	a.EventBus = events.NewEventBus()
	a.Availability = service.NewAvailabilityService(cat, a.Ledger, logger)
	a.Recommender = service.NewRecommendationService(cat, a.Ledger)
	a.Transactions = service.NewTransactionService(cat, a.Availability, a.Ledger, a.EventBus, logger)
	a.Billing = service.NewBillingService(a.Ledger)
	a.Status = status.NewService(cat, a.Ledger)
	a.Exporter = export.NewExporter(a.Ledger, cfg.Exports.Path, logger)

	sessions := a.initSessions(ctx)
	a.initMirror()
	a.subscribeEvents()

	dispatcher := tools.NewDispatcher(a.Availability, a.Recommender, a.Transactions, a.Billing, logger)

	if cfg.Agent.APIKey == "" {
		return nil, fmt.Errorf("agent api key is required")
	}
	client, err := agent.NewGeminiClient(ctx, cfg.Agent.APIKey, cfg.Agent.Model)
	if err != nil {
		return nil, err
	}
	a.modelClient = client

	ag := agent.New(client, dispatcher,
		time.Duration(cfg.Agent.TimeoutSeconds)*time.Second,
		cfg.Agent.MaxToolRounds, logging.Component(logger, "agent"))

	a.Chat = service.NewChatService(sessions, ag,
		cfg.Session.RateLimitMessages,
		time.Duration(cfg.Session.RateLimitWindow)*time.Second, logger)

	return a, nil
}

// StartWorkers launches background goroutines owned by the app.
func (a *App) StartWorkers(ctx context.Context) {
	if a.Mirror != nil {
		go a.Mirror.Start(ctx)
	}
}

func (a *App) Close() {
	if a.modelClient != nil {
		_ = a.modelClient.Close()
	}
	if a.redisClient != nil {
		_ = session.Close(a.redisClient)
	}
	if a.storeCloser != nil {
		_ = a.storeCloser.Close()
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func (a *App) openStore(cfg config.LedgerConfig) (domain.BookingStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	switch cfg.Backend {
	case "sqlite":
		store, err := ledger.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.storeCloser = store
		return store, nil
	default:
		return ledger.NewFileStore(cfg.Path)
	}
}

func (a *App) initSessions(ctx context.Context) domain.SessionRepository {
	ttl := time.Duration(a.Cfg.Session.TTLSeconds) * time.Second
	memory := session.NewMemoryRepository(ttl)

	if a.Cfg.Redis.Address == "" {
		a.Logger.Info().Msg("redis not configured, using in-memory sessions")
		return memory
	}

	client := session.NewRedisClient(a.Cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := session.Ping(pingCtx, client); err != nil {
		a.Logger.Warn().Err(err).Msg("redis unavailable at startup, failover starts on memory")
	}
	a.redisClient = client

	return session.NewFailoverRepository(session.NewRedisRepository(client, ttl), memory, a.Logger)
}

func (a *App) initMirror() {
	google := a.Cfg.Google
	if google.CredentialsFile == "" || google.BookingsSpreadsheetID == "" {
		a.Logger.Info().Msg("google sheets not configured, mirror disabled")
		return
	}

	svc, err := sheets.NewService(google.CredentialsFile, google.BookingsSpreadsheetID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("failed to init sheets service, mirror disabled")
		return
	}

	a.Mirror = worker.NewMirrorWorker(svc, a.redisClient, worker.DefaultRetryPolicy(), logging.Component(a.Logger, "mirror"))
}

// subscribeEvents connects ledger commits to metrics and the mirror worker.
func (a *App) subscribeEvents() {
	a.EventBus.Subscribe(events.EventBookingCommitted, func(e *events.Event) error {
		payload, err := decodeBookingEvent(e)
		if err != nil {
			return err
		}
		metrics.IncBooking(payload.Status)
		if a.Mirror != nil {
			booking, found := a.Ledger.FindByHash(payload.BookingHash)
			if found {
				return a.Mirror.EnqueueUpsert(context.Background(), &booking)
			}
		}
		return nil
	})

	a.EventBus.Subscribe(events.EventBookingCancelled, func(e *events.Event) error {
		payload, err := decodeBookingEvent(e)
		if err != nil {
			return err
		}
		metrics.IncBooking(payload.Status)
		if a.Mirror != nil {
			return a.Mirror.EnqueueStatus(context.Background(), payload.BookingID, payload.Status)
		}
		return nil
	})
}

func decodeBookingEvent(e *events.Event) (*events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
