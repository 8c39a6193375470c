package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skhpc",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skhpc",
			Name:      "tool_calls_total",
			Help:      "Agent tool invocations by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	agentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skhpc",
			Name:      "agent_requests_total",
			Help:      "Language model round trips by outcome.",
		},
		[]string{"outcome"},
	)

	agentLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skhpc",
			Name:      "agent_latency_seconds",
			Help:      "Language model round trip latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skhpc",
			Name:      "bookings_total",
			Help:      "Committed ledger mutations by resulting status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, toolCalls, agentRequests, agentLatency, bookings)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncToolCall records one tool invocation.
func IncToolCall(tool, outcome string) {
	toolCalls.WithLabelValues(tool, outcome).Inc()
}

// IncAgentRequest records one model round trip.
func IncAgentRequest(outcome string) {
	agentRequests.WithLabelValues(outcome).Inc()
}

// ObserveAgentLatency records a model round trip duration in seconds.
func ObserveAgentLatency(seconds float64) {
	agentLatency.Observe(seconds)
}

// IncBooking records a committed booking status transition.
func IncBooking(status string) {
	bookings.WithLabelValues(status).Inc()
}
