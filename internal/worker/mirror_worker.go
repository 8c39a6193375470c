package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskUpdateStatus = "update_status"
)

// MirrorTask is one unit of spreadsheet replication work.
type MirrorTask struct {
	Type       string          `json:"type"`
	Booking    *models.Booking `json:"booking,omitempty"`
	BookingID  string          `json:"booking_id,omitempty"`
	Status     string          `json:"status,omitempty"`
	RetryCount int             `json:"retry_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MirrorWorker replicates committed bookings to the spreadsheet mirror off
// the commit path. Tasks go to redis when available so they survive a
// restart, otherwise to the in-memory queue. Exhausted tasks land on the
// dead letter list.
type MirrorWorker struct {
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan MirrorTask
	redisQueueKey string
	deadLetterKey string
	logger        *zerolog.Logger
}

func NewMirrorWorker(sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *MirrorWorker {
	if retry.MaxRetries == 0 {
		retry = DefaultRetryPolicy()
	}

	return &MirrorWorker{
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan MirrorTask, models.WorkerQueueSize),
		redisQueueKey: "mirror:queue",
		deadLetterKey: "mirror:deadletter",
		logger:        logger,
	}
}

// EnqueueUpsert schedules replication of a full booking row.
func (w *MirrorWorker) EnqueueUpsert(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.BookingID == "" {
		return errors.New("booking is required")
	}
	return w.enqueue(ctx, MirrorTask{
		Type:      TaskUpsert,
		Booking:   booking,
		BookingID: booking.BookingID,
		CreatedAt: time.Now(),
	})
}

// EnqueueStatus schedules a status-only cell update.
func (w *MirrorWorker) EnqueueStatus(ctx context.Context, bookingID, status string) error {
	if bookingID == "" || status == "" {
		return errors.New("booking id and status are required")
	}
	return w.enqueue(ctx, MirrorTask{
		Type:      TaskUpdateStatus,
		BookingID: bookingID,
		Status:    status,
		CreatedAt: time.Now(),
	})
}

func (w *MirrorWorker) enqueue(ctx context.Context, task MirrorTask) error {
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("mirror: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return errors.New("mirror queue full")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *MirrorWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mirror worker started")
	defer w.logger.Info().Msg("mirror worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.processTask(ctx, task)
		default:
			if task, ok := w.tryRedis(ctx); ok {
				w.processTask(ctx, task)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case task := <-w.queue:
				w.processTask(ctx, task)
			case <-time.After(time.Second):
			}
		}
	}
}

func (w *MirrorWorker) tryRedis(ctx context.Context) (MirrorTask, bool) {
	if w.redis == nil {
		return MirrorTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("mirror: redis BRPOP error")
		}
		return MirrorTask{}, false
	}
	if len(res) != 2 {
		return MirrorTask{}, false
	}

	var task MirrorTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("mirror: decode redis task")
		return MirrorTask{}, false
	}
	return task, true
}

func (w *MirrorWorker) processTask(ctx context.Context, task MirrorTask) {
	err := w.apply(ctx, task)
	if err == nil {
		w.logger.Debug().Str("type", task.Type).Str("booking_id", task.BookingID).Msg("mirror task done")
		return
	}

	task.RetryCount++
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(err).Str("booking_id", task.BookingID).Int("retries", task.RetryCount).Msg("mirror task exhausted")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(err).Str("booking_id", task.BookingID).Dur("retry_in", delay).Msg("mirror task failed, retrying")

	select {
	case <-ctx.Done():
	case <-time.After(delay):
		if reErr := w.enqueue(ctx, task); reErr != nil {
			w.logger.Error().Err(reErr).Str("booking_id", task.BookingID).Msg("mirror: requeue failed")
			w.pushDeadLetter(ctx, task)
		}
	}
}

func (w *MirrorWorker) apply(ctx context.Context, task MirrorTask) error {
	switch task.Type {
	case TaskUpsert:
		if task.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.UpsertBooking(ctx, task.Booking)
	case TaskUpdateStatus:
		if task.BookingID == "" || task.Status == "" {
			return errors.New("booking id or status missing")
		}
		return w.sheets.UpdateBookingStatus(ctx, task.BookingID, task.Status)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

func (w *MirrorWorker) pushRedis(ctx context.Context, task MirrorTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *MirrorWorker) pushDeadLetter(ctx context.Context, task MirrorTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Msg("mirror: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("mirror: deadletter push")
	}
}
