package domain

import (
	"context"
	"time"

	"skhpc/internal/models"
)

// BookingStore persists the ledger as a whole-collection snapshot.
// Implementations replace the entire stored sequence on every mutation so a
// future incremental store can be swapped in without touching engine logic.
type BookingStore interface {
	LoadAll(ctx context.Context) ([]models.Booking, error)
	ReplaceAll(ctx context.Context, bookings []models.Booking) error
}

// SessionRepository stores conversation state by opaque session id.
// A missing or expired session yields (nil, nil); callers create fresh state.
type SessionRepository interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionState, error)
	SaveSession(ctx context.Context, state *models.SessionState) error
	ClearSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, sessionID string, limit int, window time.Duration) (bool, error)
}

// AgentReply is the agent's answer to one user message.
type AgentReply struct {
	Text string
	// ResetConversation is set after a committed booking or cancellation;
	// the caller should drop the transcript before persisting.
	ResetConversation bool
}

// ConversationAgent runs one full user turn against the language model,
// executing any tool calls it requests along the way.
type ConversationAgent interface {
	HandleMessage(ctx context.Context, state *models.SessionState, text string) (*AgentReply, error)
}

// EventPublisher delivers booking lifecycle events to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// MirrorWorker schedules asynchronous replication of committed bookings to
// an external mirror (Google Sheets). Never blocks the commit path.
type MirrorWorker interface {
	EnqueueUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueStatus(ctx context.Context, bookingID, status string) error
}

// SheetsWriter applies mirror tasks to the spreadsheet backend.
type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
	ReplaceBookings(ctx context.Context, bookings []models.Booking) error
}
