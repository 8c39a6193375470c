package models

// GpuModel describes one GPU SKU from the inventory catalog.
// Immutable after catalog load.
type GpuModel struct {
	ID          string   `yaml:"id" json:"model"`
	Name        string   `yaml:"name" json:"name"`
	Memory      string   `yaml:"memory" json:"memory"` // unit-suffixed, e.g. "24GB"
	MemoryGB    float64  `yaml:"-" json:"-"`
	PricePer30m float64  `yaml:"price_per_30min" json:"price_per_30min"`
	CudaCores   int      `yaml:"cuda_cores" json:"cuda_cores"`
	Description string   `yaml:"description" json:"description"`
	InstanceIDs []string `yaml:"instances" json:"-"`
}

// GpuOffer is one available instance descriptor returned by availability search.
type GpuOffer struct {
	Model       string  `json:"model"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Memory      string  `json:"memory"`
	Description string  `json:"description"`
	PricePer30m float64 `json:"price_per_30min"`
	CudaCores   int     `json:"cuda_cores"`
}

// Recommendation is one catalog model suggested for a use case.
type Recommendation struct {
	Model              string  `json:"model"`
	Name               string  `json:"name"`
	Memory             string  `json:"memory"`
	Description        string  `json:"description"`
	PricePerHour       float64 `json:"price_per_hour"`
	CudaCores          int     `json:"cuda_cores"`
	AvailableInstances int     `json:"available_instances"`
}
