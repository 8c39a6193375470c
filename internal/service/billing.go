package service

import (
	"strings"
	"time"

	"skhpc/internal/ledger"
	"skhpc/internal/models"
)

// BillingReport aggregates costs over a user's bookings.
type BillingReport struct {
	Bookings          []models.Booking `json:"bookings"`
	TotalCost         float64          `json:"total_cost"`
	TotalOvertimeCost float64          `json:"total_overtime_cost"`
	GrandTotal        float64          `json:"grand_total"`
	BookingCount      int              `json:"booking_count"`
}

// BillingService derives billing summaries from the ledger. Costs are fixed
// at creation time; this only aggregates.
type BillingService struct {
	ledger *ledger.Ledger
}

func NewBillingService(led *ledger.Ledger) *BillingService {
	return &BillingService{ledger: led}
}

// Calculate sums booking costs for an email, optionally narrowed to one
// booking hash and a created_at window.
func (s *BillingService) Calculate(email, bookingHash string, start, end *time.Time) BillingReport {
	email = strings.ToLower(strings.TrimSpace(email))

	report := BillingReport{Bookings: make([]models.Booking, 0)}
	for _, b := range s.ledger.ForUser(email) {
		if bookingHash != "" && b.BookingHash != bookingHash {
			continue
		}
		if start != nil && b.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && b.CreatedAt.After(*end) {
			continue
		}

		report.Bookings = append(report.Bookings, b)
		report.TotalCost += b.TotalCost
		report.TotalOvertimeCost += b.OvertimeCost
	}

	report.TotalCost = Round2(report.TotalCost)
	report.TotalOvertimeCost = Round2(report.TotalOvertimeCost)
	report.GrandTotal = Round2(report.TotalCost + report.TotalOvertimeCost)
	report.BookingCount = len(report.Bookings)
	return report
}

// Lookup returns bookings matched by the first provided identifier, checked
// per record in order hash, email, booking id.
func (s *BillingService) Lookup(bookingHash, email, bookingID string) []models.Booking {
	email = strings.ToLower(strings.TrimSpace(email))
	out := s.ledger.Query(bookingHash, email, bookingID)
	if out == nil {
		out = make([]models.Booking, 0)
	}
	return out
}
