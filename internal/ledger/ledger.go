package ledger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"skhpc/internal/domain"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
)

// Ledger is the ordered collection of booking records. Append-only except
// for status transitions. Every mutation rewrites the whole snapshot through
// the store; the mutex is held across read-modify-persist so concurrent
// sessions cannot lose updates. Only the transaction manager mutates it.
type Ledger struct {
	mu       sync.Mutex
	store    domain.BookingStore
	bookings []models.Booking
	logger   *zerolog.Logger
}

func New(store domain.BookingStore, logger *zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Load replaces the in-memory collection with the persisted snapshot.
func (l *Ledger) Load(ctx context.Context) error {
	bookings, err := l.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger snapshot: %w", err)
	}

	l.mu.Lock()
	l.bookings = bookings
	l.mu.Unlock()

	l.logger.Info().Int("bookings", len(bookings)).Msg("ledger loaded")
	return nil
}

// All returns a copy of every booking in insertion order.
func (l *Ledger) All() []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Booking, len(l.bookings))
	copy(out, l.bookings)
	return out
}

// Count returns the current ledger size.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bookings)
}

// BlockingForInstance returns scheduled/active bookings on one instance.
func (l *Ledger) BlockingForInstance(gpuID string) []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Booking
	for i := range l.bookings {
		if l.bookings[i].GpuID == gpuID && l.bookings[i].Blocks() {
			out = append(out, l.bookings[i])
		}
	}
	return out
}

// FindByHash returns the booking with the given capability token.
func (l *Ledger) FindByHash(hash string) (models.Booking, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.bookings {
		if l.bookings[i].BookingHash == hash {
			return l.bookings[i], true
		}
	}
	return models.Booking{}, false
}

// Query returns bookings matching the first provided field, checked in order
// hash, email, id.
func (l *Ledger) Query(hash, email, bookingID string) []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Booking
	for i := range l.bookings {
		b := l.bookings[i]
		switch {
		case hash != "" && b.BookingHash == hash:
			out = append(out, b)
		case email != "" && b.UserEmail == email:
			out = append(out, b)
		case bookingID != "" && b.BookingID == bookingID:
			out = append(out, b)
		}
	}
	return out
}

// ForUser returns all bookings belonging to a (lower-cased) email.
func (l *Ledger) ForUser(email string) []models.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.Booking
	for i := range l.bookings {
		if l.bookings[i].UserEmail == email {
			out = append(out, l.bookings[i])
		}
	}
	return out
}

// CommitBooking assigns booking_id, booking_hash and created_at from a staged
// draft, appends the record and persists the snapshot. The ordinal is taken
// from the ledger size at commit time; cancelled bookings leave id gaps.
// A failed snapshot write rolls the append back and reports ErrPersistence.
func (l *Ledger) CommitBooking(ctx context.Context, draft models.BookingDraft) (models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bookingID := fmt.Sprintf("book_%03d", len(l.bookings)+1)
	booking := models.Booking{
		BookingID:   bookingID,
		BookingHash: ComputeHash(bookingID, draft.UserEmail, draft.StartTime),
		UserName:    draft.UserName,
		UserEmail:   draft.UserEmail,
		GpuModel:    draft.GpuModel,
		GpuID:       draft.GpuID,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Status:      models.StatusScheduled,
		StorageGB:   draft.StorageGB,
		MemoryGB:    draft.MemoryGB,
		CPUCores:    draft.CPUCores,
		CreatedAt:   time.Now().UTC(),
		TotalCost:   draft.TotalCost,
	}

	l.bookings = append(l.bookings, booking)
	if err := l.store.ReplaceAll(ctx, l.bookings); err != nil {
		l.bookings = l.bookings[:len(l.bookings)-1]
		l.logger.Error().Err(err).Str("booking_id", bookingID).Msg("snapshot write failed, append rolled back")
		return models.Booking{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	l.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("gpu_id", booking.GpuID).
		Float64("total_cost", booking.TotalCost).
		Msg("booking committed")
	return booking, nil
}

// CancelByHash flips the matching booking to cancelled and persists. The pair
// must match exactly: a correct hash with the wrong email is ErrNotFound, not
// a hint. Completed or already cancelled bookings report ErrNotCancellable.
func (l *Ledger) CancelByHash(ctx context.Context, hash, email string) (models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.bookings {
		if l.bookings[i].BookingHash != hash || l.bookings[i].UserEmail != email {
			continue
		}
		if !l.bookings[i].IsCancellable() {
			return models.Booking{}, domain.ErrNotCancellable
		}

		prev := l.bookings[i].Status
		l.bookings[i].Status = models.StatusCancelled
		if err := l.store.ReplaceAll(ctx, l.bookings); err != nil {
			l.bookings[i].Status = prev
			l.logger.Error().Err(err).Str("booking_id", l.bookings[i].BookingID).Msg("snapshot write failed, cancel rolled back")
			return models.Booking{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}

		l.logger.Info().Str("booking_id", l.bookings[i].BookingID).Msg("booking cancelled")
		return l.bookings[i], nil
	}

	return models.Booking{}, domain.ErrNotFound
}

// ComputeHash derives the opaque capability token of a booking.
func ComputeHash(bookingID, email string, start time.Time) string {
	sum := md5.Sum([]byte(bookingID + email + start.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}
