package service

import (
	"strings"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"
)

// recommendationRule maps use-case keywords to a ranked list of candidate
// models. Rules are checked in priority order; the first match wins and
// rules are never combined.
type recommendationRule struct {
	keywords []string
	models   []string
}

var llmSizeTiers = []struct {
	sizes  []string
	models []string
}{
	// ~16GB VRAM class
	{sizes: []string{"8b", "7b"}, models: []string{"RTX-4090", "RTX-3090", "A100", "H100"}},
	// ~26GB VRAM class
	{sizes: []string{"13b"}, models: []string{"A100", "H100"}},
	// 80GB VRAM class
	{sizes: []string{"70b", "65b"}, models: []string{"H100"}},
}

var llmDefaultModels = []string{"RTX-4090", "A100", "H100"}

var recommendationRules = []recommendationRule{
	{keywords: []string{"gaming"}, models: []string{"RTX-4090", "RTX-4080", "RTX-4070", "RTX-3080"}},
	{keywords: []string{"rendering", "3d"}, models: []string{"RTX-4090", "RTX-4080", "RTX-3090"}},
	{keywords: []string{"training", "ai"}, models: []string{"H100", "A100", "RTX-4090"}},
}

var fallbackModels = []string{"RTX-4070", "RTX-4080", "RTX-4090"}

// RecommendationService maps free-text use cases to suitable catalog models.
type RecommendationService struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
}

func NewRecommendationService(cat *catalog.Catalog, led *ledger.Ledger) *RecommendationService {
	return &RecommendationService{catalog: cat, ledger: led}
}

// Recommend filters the ranked candidates by hourly budget and memory
// requirement. Candidates missing from the catalog or filtered out are
// silently dropped, never an error.
func (s *RecommendationService) Recommend(useCase string, budgetPerHour, memoryRequirement float64) []models.Recommendation {
	candidates := candidateModels(strings.ToLower(useCase))

	recs := make([]models.Recommendation, 0, len(candidates))
	for _, id := range candidates {
		m, ok := s.catalog.Get(id)
		if !ok {
			continue
		}

		pricePerHour := m.PricePer30m * 2
		if budgetPerHour > 0 && pricePerHour > budgetPerHour {
			continue
		}
		if memoryRequirement > 0 && m.MemoryGB < memoryRequirement {
			continue
		}

		recs = append(recs, models.Recommendation{
			Model:              m.ID,
			Name:               m.Name,
			Memory:             m.Memory,
			Description:        m.Description,
			PricePerHour:       pricePerHour,
			CudaCores:          m.CudaCores,
			AvailableInstances: len(m.InstanceIDs),
		})
	}
	return recs
}

func candidateModels(useCase string) []string {
	if containsAny(useCase, "llama", "llm", "language model") {
		for _, tier := range llmSizeTiers {
			if containsAny(useCase, tier.sizes...) {
				return tier.models
			}
		}
		return llmDefaultModels
	}

	for _, rule := range recommendationRules {
		if containsAny(useCase, rule.keywords...) {
			return rule.models
		}
	}
	return fallbackModels
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
