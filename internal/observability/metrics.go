package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agridash"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Backend API metrics.
	BackendRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,transport,validation,business,unavailable,decode}
	BackendDuration *prometheus.HistogramVec // labels: endpoint
	BreakerOpen     prometheus.Gauge

	// Page submit metrics.
	SubmitOutcomes   *prometheus.CounterVec // labels: capability, status={success,degraded}
	SimulatedResults *prometheus.CounterVec // labels: capability
	StaleResults     *prometheus.CounterVec // labels: capability

	// Location search metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	SearchCoalesced    prometheus.Counter

	JournalWrites        *prometheus.CounterVec // labels: outcome={success,error}
	SessionAuthenticated prometheus.Gauge
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.BackendRequests,
		m.BackendDuration,
		m.BreakerOpen,
		m.SubmitOutcomes,
		m.SimulatedResults,
		m.StaleResults,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.SearchCoalesced,
		m.JournalWrites,
		m.SessionAuthenticated,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      help("Backend API requests by endpoint and outcome."),
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      help("Backend API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"endpoint"}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_breaker_open",
			Help:      help("1 when the backend circuit breaker is open, 0 otherwise."),
		}),
		SubmitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_outcomes_total",
			Help:      help("Completed page submissions by capability and status."),
		}, []string{"capability", "status"}),
		SimulatedResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulated_results_total",
			Help:      help("Placeholder results produced in simulation mode."),
		}, []string{"capability"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      help("Results discarded because a newer submission superseded them."),
		}, []string{"capability"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Location search requests by outcome."),
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Location search cache lookups by result."),
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Geocoder API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SearchCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_coalesced_total",
			Help:      help("Search keystrokes superseded before their debounce window elapsed."),
		}),
		JournalWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_writes_total",
			Help:      help("Outcome journal writes by outcome."),
		}, []string{"outcome"}),
		SessionAuthenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_authenticated",
			Help:      help("1 while a user is signed in, 0 otherwise."),
		}),
	}
}
