package status

import (
	"fmt"
	"time"

	"skhpc/internal/catalog"
	"skhpc/internal/ledger"
	"skhpc/internal/models"
)

// Datacenter is a static descriptor of one site. Environmental readings come
// from facilities monitoring, not from this service; the values here are the
// published nominals.
type Datacenter struct {
	Location       string `json:"location"`
	Status         string `json:"status"`
	Temperature    string `json:"temperature"`
	Humidity       string `json:"humidity"`
	PowerUsage     string `json:"power_usage"`
	NetworkLatency string `json:"network_latency"`
}

type SystemMetrics struct {
	TotalGpus       int    `json:"total_gpus"`
	ActiveGpus      int    `json:"active_gpus"`
	UtilizationRate string `json:"utilization_rate"`
}

type Report struct {
	Timestamp     time.Time     `json:"timestamp"`
	OverallStatus string        `json:"overall_status"`
	Datacenters   []Datacenter  `json:"datacenter_locations"`
	Metrics       SystemMetrics `json:"system_metrics"`
}

var datacenters = []Datacenter{
	{
		Location:       "US-West (Oregon)",
		Status:         "online",
		Temperature:    "22°C",
		Humidity:       "45%",
		PowerUsage:     "85%",
		NetworkLatency: "2ms",
	},
	{
		Location:       "US-East (Virginia)",
		Status:         "online",
		Temperature:    "24°C",
		Humidity:       "42%",
		PowerUsage:     "78%",
		NetworkLatency: "1ms",
	},
	{
		Location:       "EU-West (Ireland)",
		Status:         "maintenance",
		Temperature:    "21°C",
		Humidity:       "48%",
		PowerUsage:     "20%",
		NetworkLatency: "5ms",
	},
}

// Service assembles the server status report. GPU utilization is live,
// computed from bookings active right now.
type Service struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	now     func() time.Time
}

func NewService(cat *catalog.Catalog, led *ledger.Ledger) *Service {
	return &Service{catalog: cat, ledger: led, now: time.Now}
}

// Report builds the current status snapshot.
func (s *Service) Report() Report {
	now := s.now().UTC()

	active := 0
	seen := make(map[string]bool)
	for _, b := range s.ledger.All() {
		if b.Status != models.StatusScheduled && b.Status != models.StatusActive {
			continue
		}
		if b.Overlaps(now, now.Add(time.Nanosecond)) && !seen[b.GpuID] {
			seen[b.GpuID] = true
			active++
		}
	}

	total := s.catalog.TotalInstances()
	rate := 0
	if total > 0 {
		rate = active * 100 / total
	}

	return Report{
		Timestamp:     now,
		OverallStatus: "healthy",
		Datacenters:   datacenters,
		Metrics: SystemMetrics{
			TotalGpus:       total,
			ActiveGpus:      active,
			UtilizationRate: fmt.Sprintf("%d%%", rate),
		},
	}
}
