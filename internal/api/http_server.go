package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skhpc/internal/config"
	"skhpc/internal/domain"
	"skhpc/internal/export"
	"skhpc/internal/metrics"
	"skhpc/internal/service"
	"skhpc/internal/status"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking system over REST. The chat endpoint is the
// primary surface; the read endpoints exist for dashboards and scripting.
type HTTPServer struct {
	cfg          config.APIConfig
	chat         *service.ChatService
	availability *service.AvailabilityService
	recommender  *service.RecommendationService
	billing      *service.BillingService
	status       *status.Service
	exporter     *export.Exporter
	server       *http.Server
	logger       *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	chat *service.ChatService,
	availability *service.AvailabilityService,
	recommender *service.RecommendationService,
	billing *service.BillingService,
	statusSvc *status.Service,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		chat:         chat,
		availability: availability,
		recommender:  recommender,
		billing:      billing,
		status:       statusSvc,
		exporter:     exporter,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat", srv.handleChat)
	mux.HandleFunc("/api/v1/gpus", srv.handleGpus)
	mux.HandleFunc("/api/v1/recommendations", srv.handleRecommendations)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/billing", srv.handleBilling)
	mux.HandleFunc("/api/v1/status", srv.handleStatus)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	auth := NewHTTPAuth(cfg)
	handler := srv.loggingMiddleware(auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("chat")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := strings.TrimSpace(body.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.chat.HandleMessage(r.Context(), sessionID, body.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many messages")
		case errors.Is(err, domain.ErrAgentUnavailable):
			writeError(w, http.StatusServiceUnavailable, "assistant is temporarily unavailable")
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("chat handler error")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{SessionID: sessionID, Reply: reply})
}

func (s *HTTPServer) handleGpus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("gpus")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := service.SearchQuery{Model: r.URL.Query().Get("model")}
	if raw := r.URL.Query().Get("min_memory"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_memory")
			return
		}
		q.MinMemory = v
	}

	startRaw, endRaw := r.URL.Query().Get("start_time"), r.URL.Query().Get("end_time")
	if startRaw != "" && endRaw != "" {
		start, err := time.Parse(time.RFC3339, startRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_time; expected RFC3339")
			return
		}
		end, err := time.Parse(time.RFC3339, endRaw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_time; expected RFC3339")
			return
		}
		q.Start, q.End = &start, &end
	}

	offers := s.availability.Search(q)
	writeJSON(w, http.StatusOK, map[string]any{"available_gpus": offers, "count": len(offers)})
}

func (s *HTTPServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("recommendations")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	useCase := strings.TrimSpace(r.URL.Query().Get("use_case"))
	if useCase == "" {
		writeError(w, http.StatusBadRequest, "use_case is required")
		return
	}

	budget, _ := strconv.ParseFloat(r.URL.Query().Get("budget_per_hour"), 64)
	memory, _ := strconv.ParseFloat(r.URL.Query().Get("memory_requirement"), 64)

	recs := s.recommender.Recommend(useCase, budget, memory)
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs, "use_case": useCase})
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	hash := r.URL.Query().Get("booking_hash")
	email := r.URL.Query().Get("user_email")
	id := r.URL.Query().Get("booking_id")
	if hash == "" && email == "" && id == "" {
		writeError(w, http.StatusBadRequest, "booking_hash, user_email or booking_id is required")
		return
	}

	bookings := s.billing.Lookup(hash, email, id)
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "count": len(bookings)})
}

func (s *HTTPServer) handleBilling(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("billing")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("user_email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "user_email is required")
		return
	}

	var start, end *time.Time
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date; expected RFC3339")
			return
		}
		start = &t
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date; expected RFC3339")
			return
		}
		end = &t
	}

	report := s.billing.Calculate(email, r.URL.Query().Get("booking_hash"), start, end)
	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("status")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Report())
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filePath, err := s.exporter.ExportBookings()
	if err != nil {
		s.logger.Error().Err(err).Msg("export error")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": filePath})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
