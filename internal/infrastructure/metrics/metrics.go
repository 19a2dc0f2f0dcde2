package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Identity metrics
	IdentityResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_performance_identity_resolutions_total",
			Help: "Total identity resolutions by the tier that answered",
		},
		[]string{"source"}, // source: session|persistent|remote|fallback
	)

	IdentitySourceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_performance_identity_source_calls_total",
			Help: "Total calls to the support platform admin API",
		},
		[]string{"status"}, // status: success|not_found|error
	)

	// Analysis metrics
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_performance_analysis_runs_total",
			Help: "Total vendor analysis runs",
		},
		[]string{"vendor", "status"}, // status: success|no_agents|error
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_performance_analysis_duration_seconds",
			Help:    "Vendor analysis duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"vendor"},
	)

	ConversationsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_performance_conversations_analyzed_total",
			Help: "Total conversations attributed to vendor agents",
		},
		[]string{"vendor"},
	)

	// Snapshot metrics
	SnapshotUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_performance_snapshot_upserts_total",
			Help: "Total weekly snapshot upserts",
		},
		[]string{"status"}, // status: success|error
	)

	// WebSocket metrics
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vendor_performance_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(IdentityResolutions)
	prometheus.MustRegister(IdentitySourceCalls)
	prometheus.MustRegister(AnalysisRuns)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(ConversationsAnalyzed)
	prometheus.MustRegister(SnapshotUpserts)
	prometheus.MustRegister(WebSocketConnections)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
