package status

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	snapshot []models.Booking
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
	s.snapshot = make([]models.Booking, len(bookings))
	copy(s.snapshot, bookings)
	return nil
}

func testService(t *testing.T, now time.Time) (*Service, *ledger.Ledger) {
	t.Helper()

	cat, err := catalog.New([]models.GpuModel{
		{
			ID:          "RTX-4090",
			Name:        "NVIDIA GeForce RTX 4090",
			Memory:      "24GB",
			PricePer30m: 7.5,
			InstanceIDs: []string{"RTX-4090-01", "RTX-4090-02", "RTX-4090-03"},
		},
		{
			ID:          "H100",
			Name:        "NVIDIA H100 Tensor Core",
			Memory:      "80GB",
			PricePer30m: 25,
			InstanceIDs: []string{"H100-01"},
		},
	})
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	led := ledger.New(&memStore{}, &logger)
	require.NoError(t, led.Load(context.Background()))

	svc := NewService(cat, led)
	svc.now = func() time.Time { return now }
	return svc, led
}

func commit(t *testing.T, led *ledger.Ledger, gpuID string, start, end time.Time) models.Booking {
	t.Helper()
	booking, err := led.CommitBooking(context.Background(), models.BookingDraft{
		GpuModel:  "RTX-4090",
		GpuID:     gpuID,
		UserName:  "Alice Smith",
		UserEmail: "alice@example.com",
		StartTime: start,
		EndTime:   end,
		TotalCost: 30,
	})
	require.NoError(t, err)
	return booking
}

func TestReport(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("IdleFleet", func(t *testing.T) {
		svc, _ := testService(t, now)
		report := svc.Report()

		assert.Equal(t, "healthy", report.OverallStatus)
		assert.Equal(t, now, report.Timestamp)
		assert.Equal(t, 4, report.Metrics.TotalGpus)
		assert.Equal(t, 0, report.Metrics.ActiveGpus)
		assert.Equal(t, "0%", report.Metrics.UtilizationRate)
		assert.Len(t, report.Datacenters, 3)
	})

	t.Run("CountsBookingsCoveringNow", func(t *testing.T) {
		svc, led := testService(t, now)
		commit(t, led, "RTX-4090-01", now.Add(-time.Hour), now.Add(time.Hour))
		commit(t, led, "RTX-4090-02", now.Add(2*time.Hour), now.Add(4*time.Hour)) // future, not active

		report := svc.Report()
		assert.Equal(t, 1, report.Metrics.ActiveGpus)
		assert.Equal(t, "25%", report.Metrics.UtilizationRate)
	})

	t.Run("DistinctInstancesOnly", func(t *testing.T) {
		svc, led := testService(t, now)
		commit(t, led, "RTX-4090-01", now.Add(-2*time.Hour), now.Add(time.Hour))
		commit(t, led, "RTX-4090-01", now.Add(-time.Hour), now.Add(2*time.Hour))

		report := svc.Report()
		assert.Equal(t, 1, report.Metrics.ActiveGpus)
	})

	t.Run("CancelledBookingNotActive", func(t *testing.T) {
		svc, led := testService(t, now)
		booking := commit(t, led, "RTX-4090-01", now.Add(-time.Hour), now.Add(time.Hour))
		_, err := led.CancelByHash(context.Background(), booking.BookingHash, booking.UserEmail)
		require.NoError(t, err)

		report := svc.Report()
		assert.Equal(t, 0, report.Metrics.ActiveGpus)
	})
}
