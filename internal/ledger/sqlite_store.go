package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skhpc/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the snapshot in a single bookings table. It still honours
// replace-the-whole-collection semantics: ReplaceAll truncates and reinserts
// inside one transaction, so readers never observe a partial snapshot.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS bookings (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		booking_id TEXT NOT NULL,
		booking_hash TEXT NOT NULL,
		user_name TEXT NOT NULL,
		user_email TEXT NOT NULL,
		gpu_model TEXT NOT NULL,
		gpu_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL,
		storage_gb INTEGER NOT NULL,
		memory_gb INTEGER NOT NULL,
		cpu_cores INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		total_cost REAL NOT NULL,
		overtime_minutes INTEGER NOT NULL DEFAULT 0,
		overtime_cost REAL NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create bookings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]models.Booking, error) {
	query := `SELECT booking_id, booking_hash, user_name, user_email, gpu_model, gpu_id,
	                 start_time, end_time, status, storage_gb, memory_gb, cpu_cores,
	                 created_at, total_cost, overtime_minutes, overtime_cost
	          FROM bookings ORDER BY seq ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		var start, end, created string
		err := rows.Scan(
			&b.BookingID, &b.BookingHash, &b.UserName, &b.UserEmail, &b.GpuModel, &b.GpuID,
			&start, &end, &b.Status, &b.StorageGB, &b.MemoryGB, &b.CPUCores,
			&created, &b.TotalCost, &b.OvertimeMinutes, &b.OvertimeCost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if b.StartTime, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("failed to parse start_time %s: %w", start, err)
		}
		if b.EndTime, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("failed to parse end_time %s: %w", end, err)
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at %s: %w", created, err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *SQLiteStore) ReplaceAll(ctx context.Context, bookings []models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}

	query := `INSERT INTO bookings (
		booking_id, booking_hash, user_name, user_email, gpu_model, gpu_id,
		start_time, end_time, status, storage_gb, memory_gb, cpu_cores,
		created_at, total_cost, overtime_minutes, overtime_cost
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range bookings {
		b := &bookings[i]
		_, err := tx.ExecContext(ctx, query,
			b.BookingID, b.BookingHash, b.UserName, b.UserEmail, b.GpuModel, b.GpuID,
			b.StartTime.UTC().Format(time.RFC3339), b.EndTime.UTC().Format(time.RFC3339),
			b.Status, b.StorageGB, b.MemoryGB, b.CPUCores,
			b.CreatedAt.UTC().Format(time.RFC3339), b.TotalCost, b.OvertimeMinutes, b.OvertimeCost,
		)
		if err != nil {
			return fmt.Errorf("failed to insert booking %s: %w", b.BookingID, err)
		}
	}

	return tx.Commit()
}
