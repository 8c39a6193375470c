package service

import (
	"testing"
	"time"

	"skhpc/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	m := models.GpuModel{ID: "RTX-4090", PricePer30m: 10}
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		duration time.Duration
		want     float64
	}{
		{"OneSlot", 30 * time.Minute, 10.00},
		{"OneHour", time.Hour, 20.00},
		{"TwoHours", 2 * time.Hour, 40.00},
		{"PartialSlotBillsFractionally", 45 * time.Minute, 15.00},
		{"QuarterHour", 15 * time.Minute, 5.00},
		{"OneMinute", time.Minute, 0.33},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cost(m, start, start.Add(tc.duration))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCostRounding(t *testing.T) {
	// 7.50 per slot, 50 minutes = 1.666... slots = 12.4999...
	m := models.GpuModel{ID: "RTX-4090", PricePer30m: 7.5}
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	got := Cost(m, start, start.Add(50*time.Minute))
	assert.Equal(t, 12.5, got)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.33, Round2(1.0/3.0))
	assert.Equal(t, 10.0, Round2(10.004))
	assert.Equal(t, 10.01, Round2(10.006))
	assert.Equal(t, 0.0, Round2(0))
}
