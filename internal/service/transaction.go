package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/domain"
	"skhpc/internal/events"
	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
)

// BookingRequest carries the raw prepare_booking parameters before validation.
type BookingRequest struct {
	GpuModel  string
	GpuID     string
	UserName  string
	UserEmail string
	StartTime string
	EndTime   string
	StorageGB int
	MemoryGB  int
	CPUCores  int
}

// ConfirmationSummary describes a staged operation back to the user.
type ConfirmationSummary struct {
	Kind      string  `json:"operation"`
	GpuModel  string  `json:"gpu_model,omitempty"`
	GpuID     string  `json:"gpu_id,omitempty"`
	BookingID string  `json:"booking_id,omitempty"`
	UserName  string  `json:"user_name,omitempty"`
	UserEmail string  `json:"user_email"`
	StartTime string  `json:"start_time,omitempty"`
	EndTime   string  `json:"end_time,omitempty"`
	TotalCost float64 `json:"total_cost,omitempty"`
}

// ConfirmResult reports the outcome of a confirm call.
type ConfirmResult struct {
	Confirmed bool
	Declined  bool
	Booking   *models.Booking
	// ResetConversation signals the caller that chat context may be dropped.
	ResetConversation bool
}

// TransactionService is the two-phase prepare/confirm state machine. It is
// stateless: the per-session state (Idle vs AwaitingConfirmation) lives in
// the passed-in SessionState, and this is the only component allowed to
// mutate the ledger.
type TransactionService struct {
	catalog      *catalog.Catalog
	availability *AvailabilityService
	ledger       *ledger.Ledger
	eventBus     domain.EventPublisher
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewTransactionService(
	cat *catalog.Catalog,
	avail *AvailabilityService,
	led *ledger.Ledger,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *TransactionService {
	return &TransactionService{
		catalog:      cat,
		availability: avail,
		ledger:       led,
		eventBus:     eventBus,
		logger:       logger,
		now:          time.Now,
	}
}

// PrepareBooking validates and prices a booking request, stages it on the
// session and returns a confirmation summary. The ledger is never touched.
// A prior uncommitted draft is silently replaced.
func (s *TransactionService) PrepareBooking(state *models.SessionState, req BookingRequest) (*ConfirmationSummary, error) {
	if req.GpuModel == "" || req.UserName == "" || req.UserEmail == "" || req.StartTime == "" || req.EndTime == "" {
		return nil, fmt.Errorf("%w: gpu_model, user_name, user_email, start_time and end_time are required", domain.ErrValidation)
	}

	name := strings.TrimSpace(req.UserName)
	if name == "" {
		return nil, fmt.Errorf("%w: user_name must not be blank", domain.ErrValidation)
	}

	email, err := normalizeEmail(req.UserEmail)
	if err != nil {
		return nil, err
	}

	m, ok := s.catalog.Get(req.GpuModel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown gpu model %q", domain.ErrValidation, req.GpuModel)
	}

	start, err := parseInstant(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_time: %v", domain.ErrValidation, err)
	}
	end, err := parseInstant(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_time: %v", domain.ErrValidation, err)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation)
	}
	if start.Before(s.now()) {
		return nil, fmt.Errorf("%w: start_time must not be in the past", domain.ErrValidation)
	}

	gpuID := req.GpuID
	if gpuID == "" {
		selected, found := s.availability.AutoSelect(m.ID, start, end)
		if !found {
			return nil, domain.ErrNoAvailability
		}
		gpuID = selected
	} else if !s.catalog.HasInstance(m.ID, gpuID) {
		return nil, fmt.Errorf("%w: instance %q does not belong to model %s", domain.ErrValidation, gpuID, m.ID)
	}

	draft := &models.BookingDraft{
		GpuModel:  m.ID,
		GpuID:     gpuID,
		UserName:  name,
		UserEmail: email,
		StartTime: start,
		EndTime:   end,
		StorageGB: defaultInt(req.StorageGB, models.DefaultStorageGB),
		MemoryGB:  defaultInt(req.MemoryGB, models.DefaultMemoryGB),
		CPUCores:  defaultInt(req.CPUCores, models.DefaultCPUCores),
		TotalCost: Cost(m, start, end),
	}

	state.Stage(&models.PendingOperation{
		Kind:     models.PendingKindBooking,
		Booking:  draft,
		StagedAt: s.now().UTC(),
	})

	s.logger.Info().
		Str("session_id", state.ID).
		Str("gpu_id", gpuID).
		Float64("total_cost", draft.TotalCost).
		Msg("booking draft staged")

	return &ConfirmationSummary{
		Kind:      models.PendingKindBooking,
		GpuModel:  draft.GpuModel,
		GpuID:     draft.GpuID,
		UserName:  draft.UserName,
		UserEmail: draft.UserEmail,
		StartTime: draft.StartTime.UTC().Format(time.RFC3339),
		EndTime:   draft.EndTime.UTC().Format(time.RFC3339),
		TotalCost: draft.TotalCost,
	}, nil
}

// PrepareCancellation resolves a hash+email pair against the ledger and
// stages the cancellation for confirmation.
func (s *TransactionService) PrepareCancellation(state *models.SessionState, bookingHash, userEmail string) (*ConfirmationSummary, error) {
	if bookingHash == "" || userEmail == "" {
		return nil, fmt.Errorf("%w: booking_hash and user_email are required", domain.ErrValidation)
	}

	email, err := normalizeEmail(userEmail)
	if err != nil {
		return nil, err
	}

	booking, found := s.ledger.FindByHash(bookingHash)
	if !found || booking.UserEmail != email {
		return nil, domain.ErrNotFound
	}
	if !booking.IsCancellable() {
		return nil, domain.ErrNotCancellable
	}

	state.Stage(&models.PendingOperation{
		Kind: models.PendingKindCancellation,
		Cancellation: &models.CancellationDraft{
			BookingID:   booking.BookingID,
			BookingHash: bookingHash,
			UserEmail:   email,
		},
		StagedAt: s.now().UTC(),
	})

	s.logger.Info().
		Str("session_id", state.ID).
		Str("booking_id", booking.BookingID).
		Msg("cancellation draft staged")

	return &ConfirmationSummary{
		Kind:      models.PendingKindCancellation,
		BookingID: booking.BookingID,
		GpuModel:  booking.GpuModel,
		GpuID:     booking.GpuID,
		UserEmail: email,
		StartTime: booking.StartTime.UTC().Format(time.RFC3339),
		EndTime:   booking.EndTime.UTC().Format(time.RFC3339),
		TotalCost: booking.TotalCost,
	}, nil
}

// Confirm consumes the staged operation. confirmed=false discards the draft
// and leaves the ledger untouched; confirmed=true commits it. The staged
// draft is trusted as-is: availability is not re-checked at commit time.
func (s *TransactionService) Confirm(ctx context.Context, state *models.SessionState, confirmed bool) (*ConfirmResult, error) {
	if !state.AwaitingConfirmation() {
		return nil, domain.ErrNoPendingOperation
	}

	op := state.TakePending()
	if !confirmed {
		s.logger.Info().Str("session_id", state.ID).Str("kind", op.Kind).Msg("pending operation declined")
		return &ConfirmResult{Declined: true}, nil
	}

	switch op.Kind {
	case models.PendingKindBooking:
		booking, err := s.ledger.CommitBooking(ctx, *op.Booking)
		if err != nil {
			return nil, err
		}
		s.publish(events.EventBookingCommitted, &booking)
		return &ConfirmResult{Confirmed: true, Booking: &booking, ResetConversation: true}, nil

	case models.PendingKindCancellation:
		booking, err := s.ledger.CancelByHash(ctx, op.Cancellation.BookingHash, op.Cancellation.UserEmail)
		if err != nil {
			return nil, err
		}
		s.publish(events.EventBookingCancelled, &booking)
		return &ConfirmResult{Confirmed: true, Booking: &booking, ResetConversation: true}, nil

	default:
		return nil, fmt.Errorf("unknown pending operation kind: %s", op.Kind)
	}
}

func (s *TransactionService) publish(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.BookingID,
		BookingHash: booking.BookingHash,
		UserEmail:   booking.UserEmail,
		GpuModel:    booking.GpuModel,
		GpuID:       booking.GpuID,
		Status:      booking.Status,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		TotalCost:   booking.TotalCost,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.BookingID).Msg("publish event error")
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", fmt.Errorf("%w: invalid email address %q", domain.ErrValidation, raw)
	}
	return email, nil
}

func parseInstant(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func defaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
