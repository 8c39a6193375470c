package service

import (
	"math"
	"time"

	"skhpc/internal/models"
)

// Cost prices a reservation in 30-minute slots. The slot count stays
// fractional: 1.25 hours bills as 2.5 slots, not 3. Rounded to 2 decimal
// places at the point of storage.
func Cost(m models.GpuModel, start, end time.Time) float64 {
	slots := end.Sub(start).Hours() * 2
	return Round2(slots * m.PricePer30m)
}

// Round2 rounds a currency amount to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
