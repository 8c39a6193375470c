package models

import "time"

type Booking struct {
	BookingID       string    `json:"booking_id"`
	BookingHash     string    `json:"booking_hash"`
	UserName        string    `json:"user_name"`
	UserEmail       string    `json:"user_email"`
	GpuModel        string    `json:"gpu_model"`
	GpuID           string    `json:"gpu_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"` // scheduled, active, cancelled, completed
	StorageGB       int       `json:"storage_gb"`
	MemoryGB        int       `json:"memory_gb"`
	CPUCores        int       `json:"cpu_cores"`
	CreatedAt       time.Time `json:"created_at"`
	TotalCost       float64   `json:"total_cost"`
	OvertimeMinutes int       `json:"overtime_minutes"`
	OvertimeCost    float64   `json:"overtime_cost"`
}

// IsCancellable reports whether the booking may still transition to cancelled.
func (b *Booking) IsCancellable() bool {
	return b.Status == StatusScheduled || b.Status == StatusActive
}

// Blocks reports whether the booking occupies its instance for scheduling.
func (b *Booking) Blocks() bool {
	return b.Status == StatusScheduled || b.Status == StatusActive
}

// Overlaps applies the half-open interval test against a requested window.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}
