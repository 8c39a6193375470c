package service

import (
	"strings"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"

	"github.com/rs/zerolog"
)

// SearchQuery filters the availability search. Model matches by
// case-insensitive substring; MinMemory is in GB. Time filtering only
// applies when both Start and End are set: without a full window the caller
// wants current inventory, not slot-accurate availability.
type SearchQuery struct {
	Model     string
	Start     *time.Time
	End       *time.Time
	MinMemory float64
}

// AvailabilityService computes overlap-free instance availability against
// the ledger. Read-only: it never mutates bookings.
type AvailabilityService struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	logger  *zerolog.Logger
}

func NewAvailabilityService(cat *catalog.Catalog, led *ledger.Ledger, logger *zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{catalog: cat, ledger: led, logger: logger}
}

// Search returns one descriptor per available instance, in catalog iteration
// order (models in insertion order, then instances within each model).
func (s *AvailabilityService) Search(q SearchQuery) []models.GpuOffer {
	offers := make([]models.GpuOffer, 0)

	for _, m := range s.catalog.Models() {
		if q.Model != "" && !strings.Contains(strings.ToLower(m.ID), strings.ToLower(q.Model)) {
			continue
		}
		if q.MinMemory > 0 && m.MemoryGB < q.MinMemory {
			continue
		}

		for _, instanceID := range m.InstanceIDs {
			if q.Start != nil && q.End != nil && !s.instanceFree(instanceID, *q.Start, *q.End) {
				continue
			}
			offers = append(offers, models.GpuOffer{
				Model:       m.ID,
				ID:          instanceID,
				Name:        m.Name,
				Memory:      m.Memory,
				Description: m.Description,
				PricePer30m: m.PricePer30m,
				CudaCores:   m.CudaCores,
			})
		}
	}

	return offers
}

// AutoSelect picks the first instance of the model, in catalog order, with no
// conflicting booking in the window. Used when the caller omits an explicit
// instance id.
func (s *AvailabilityService) AutoSelect(modelID string, start, end time.Time) (string, bool) {
	m, ok := s.catalog.Get(modelID)
	if !ok {
		return "", false
	}

	for _, instanceID := range m.InstanceIDs {
		if s.instanceFree(instanceID, start, end) {
			return instanceID, true
		}
	}
	return "", false
}

// instanceFree applies the half-open overlap test against every scheduled or
// active booking on the instance.
func (s *AvailabilityService) instanceFree(instanceID string, start, end time.Time) bool {
	for _, b := range s.ledger.BlockingForInstance(instanceID) {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}
