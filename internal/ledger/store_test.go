package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"skhpc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBookings() []models.Booking {
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	return []models.Booking{
		{
			BookingID:   "book_001",
			BookingHash: ComputeHash("book_001", "alice@example.com", start),
			UserName:    "Alice Smith",
			UserEmail:   "alice@example.com",
			GpuModel:    "RTX-4090",
			GpuID:       "RTX-4090-01",
			StartTime:   start,
			EndTime:     start.Add(2 * time.Hour),
			Status:      models.StatusScheduled,
			StorageGB:   128,
			MemoryGB:    32,
			CPUCores:    8,
			CreatedAt:   start.Add(-time.Hour),
			TotalCost:   30.0,
		},
		{
			BookingID:   "book_002",
			BookingHash: ComputeHash("book_002", "bob@example.com", start),
			UserName:    "Bob Jones",
			UserEmail:   "bob@example.com",
			GpuModel:    "H100",
			GpuID:       "H100-01",
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			Status:      models.StatusCancelled,
			StorageGB:   256,
			MemoryGB:    64,
			CPUCores:    16,
			CreatedAt:   start.Add(-30 * time.Minute),
			TotalCost:   50.0,
		},
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "bookings.json"))
		require.NoError(t, err)

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "bookings.json"))
		require.NoError(t, err)

		want := sampleBookings()
		require.NoError(t, store.ReplaceAll(ctx, want))

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("ReplaceIsIdempotent", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "bookings.json"))
		require.NoError(t, err)

		want := sampleBookings()
		require.NoError(t, store.ReplaceAll(ctx, want))
		first, err := store.LoadAll(ctx)
		require.NoError(t, err)

		require.NoError(t, store.ReplaceAll(ctx, first))
		second, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("EmptySnapshotOverwrites", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "bookings.json"))
		require.NoError(t, err)

		require.NoError(t, store.ReplaceAll(ctx, sampleBookings()))
		require.NoError(t, store.ReplaceAll(ctx, nil))

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("EmptyPathRejected", func(t *testing.T) {
		_, err := NewFileStore("")
		assert.Error(t, err)
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("RoundTripPreservesOrder", func(t *testing.T) {
		store, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		defer store.Close()

		want := sampleBookings()
		require.NoError(t, store.ReplaceAll(ctx, want))

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("ReplaceOverwrites", func(t *testing.T) {
		store, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.ReplaceAll(ctx, sampleBookings()))

		shorter := sampleBookings()[:1]
		shorter[0].Status = models.StatusCompleted
		require.NoError(t, store.ReplaceAll(ctx, shorter))

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, models.StatusCompleted, got[0].Status)
	})

	t.Run("EmptyDatabaseIsEmpty", func(t *testing.T) {
		store, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		defer store.Close()

		got, err := store.LoadAll(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("FileBacked", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bookings.db")
		store, err := NewSQLiteStore(path)
		require.NoError(t, err)

		want := sampleBookings()
		require.NoError(t, store.ReplaceAll(ctx, want))
		require.NoError(t, store.Close())

		reopened, err := NewSQLiteStore(path)
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.LoadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
