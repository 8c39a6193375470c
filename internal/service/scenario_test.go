package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBookingScenario walks one conversation end to end: search, prepare,
// confirm, then search again.
func TestBookingScenario(t *testing.T) {
	ctx := context.Background()

	cat, err := catalog.New([]models.GpuModel{{
		ID:          "RTX-4090",
		Name:        "NVIDIA GeForce RTX 4090",
		Memory:      "24GB",
		PricePer30m: 7.5,
		CudaCores:   16384,
		InstanceIDs: []string{"RTX-4090-01", "RTX-4090-02"},
	}})
	require.NoError(t, err)

	store := &memStore{}
	led := ledger.New(store, discardLogger())
	require.NoError(t, led.Load(ctx))

	avail := NewAvailabilityService(cat, led, discardLogger())
	tx := NewTransactionService(cat, avail, led, nil, discardLogger())
	tx.now = func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) }

	start := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	offers := avail.Search(SearchQuery{Model: "RTX-4090", Start: &start, End: &end})
	require.Len(t, offers, 2)

	state := &models.SessionState{ID: "ann"}
	summary, err := tx.PrepareBooking(state, BookingRequest{
		GpuModel:  "RTX-4090",
		UserName:  "Ann",
		UserEmail: "a@x.com",
		StartTime: "2025-08-01T10:00:00Z",
		EndTime:   "2025-08-01T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "RTX-4090-01", summary.GpuID)
	assert.Equal(t, 30.0, summary.TotalCost)
	assert.True(t, state.AwaitingConfirmation())

	result, err := tx.Confirm(ctx, state, true)
	require.NoError(t, err)
	assert.Equal(t, "book_001", result.Booking.BookingID)
	assert.Equal(t, models.StatusScheduled, result.Booking.Status)
	assert.False(t, state.AwaitingConfirmation())
	assert.Equal(t, 1, led.Count())

	offers = avail.Search(SearchQuery{Model: "RTX-4090", Start: &start, End: &end})
	require.Len(t, offers, 1)
	assert.Equal(t, "RTX-4090-02", offers[0].ID)
}

// TestDeclineLeavesSnapshotUntouched checks the persisted snapshot byte for
// byte across a declined draft.
func TestDeclineLeavesSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	tx, _, _, store := testTransactionService(t)

	// One committed booking so the snapshot is non-trivial.
	first := &models.SessionState{ID: "a"}
	_, err := tx.PrepareBooking(first, validBookingRequest())
	require.NoError(t, err)
	_, err = tx.Confirm(ctx, first, true)
	require.NoError(t, err)

	before := make([]models.Booking, len(store.snapshot))
	copy(before, store.snapshot)

	second := &models.SessionState{ID: "b"}
	req := validBookingRequest()
	req.GpuModel = "H100"
	_, err = tx.PrepareBooking(second, req)
	require.NoError(t, err)

	result, err := tx.Confirm(ctx, second, false)
	require.NoError(t, err)
	assert.True(t, result.Declined)
	assert.Equal(t, before, store.snapshot)
}

// TestOverlapProperty fuzzes random interval sets against the availability
// engine: an instance must never be reported free for a window that collides
// with a blocking booking.
func TestOverlapProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	randomWindow := func() (time.Time, time.Time) {
		start := base.Add(time.Duration(rng.Intn(24*14)) * time.Hour)
		end := start.Add(time.Duration(1+rng.Intn(12)) * time.Hour)
		return start, end
	}

	for round := 0; round < 20; round++ {
		cat := testCatalog(t)
		led, _ := testLedger(t)
		avail := NewAvailabilityService(cat, led, discardLogger())

		var blocking []models.Booking
		for i := 0; i < 8; i++ {
			start, end := randomWindow()
			booking := bookInstance(t, led, "A100", "A100-01", start, end)
			if rng.Intn(3) == 0 {
				_, err := led.CancelByHash(context.Background(), booking.BookingHash, booking.UserEmail)
				require.NoError(t, err)
			} else {
				blocking = append(blocking, booking)
			}
		}

		for i := 0; i < 16; i++ {
			qs, qe := randomWindow()

			conflict := false
			for _, b := range blocking {
				if qs.Before(b.EndTime) && qe.After(b.StartTime) {
					conflict = true
					break
				}
			}

			offers := avail.Search(SearchQuery{Model: "A100", Start: &qs, End: &qe})
			if conflict {
				assert.Empty(t, offers, "round %d query %d: %v-%v reported free over a blocking booking", round, i, qs, qe)
			} else {
				assert.Len(t, offers, 1, "round %d query %d: %v-%v reported busy with no blocking booking", round, i, qs, qe)
			}
		}
	}
}
