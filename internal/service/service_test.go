package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory BookingStore for service tests.
type memStore struct {
	mu       sync.Mutex
	snapshot []models.Booking
	failNext bool
}

func (s *memStore) LoadAll(ctx context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Booking, len(s.snapshot))
	copy(out, s.snapshot)
	return out, nil
}

func (s *memStore) ReplaceAll(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("disk full")
	}
	s.snapshot = make([]models.Booking, len(bookings))
	copy(s.snapshot, bookings)
	return nil
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]models.GpuModel{
		{
			ID:          "RTX-4090",
			Name:        "NVIDIA GeForce RTX 4090",
			Memory:      "24GB",
			PricePer30m: 7.5,
			CudaCores:   16384,
			Description: "Flagship consumer GPU",
			InstanceIDs: []string{"RTX-4090-01", "RTX-4090-02"},
		},
		{
			ID:          "A100",
			Name:        "NVIDIA A100 Tensor Core",
			Memory:      "40GB",
			PricePer30m: 15,
			CudaCores:   6912,
			Description: "Datacenter GPU",
			InstanceIDs: []string{"A100-01"},
		},
		{
			ID:          "H100",
			Name:        "NVIDIA H100 Tensor Core",
			Memory:      "80GB",
			PricePer30m: 25,
			CudaCores:   16896,
			Description: "Datacenter GPU for large model training",
			InstanceIDs: []string{"H100-01", "H100-02"},
		},
	})
	require.NoError(t, err)
	return c
}

func testLedger(t *testing.T) (*ledger.Ledger, *memStore) {
	t.Helper()
	store := &memStore{}
	led := ledger.New(store, discardLogger())
	require.NoError(t, led.Load(context.Background()))
	return led, store
}

// fixedNow is a deterministic clock for transaction tests.
var fixedNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func testTransactionService(t *testing.T) (*TransactionService, *AvailabilityService, *ledger.Ledger, *memStore) {
	t.Helper()
	cat := testCatalog(t)
	led, store := testLedger(t)
	avail := NewAvailabilityService(cat, led, discardLogger())
	tx := NewTransactionService(cat, avail, led, nil, discardLogger())
	tx.now = func() time.Time { return fixedNow }
	return tx, avail, led, store
}
