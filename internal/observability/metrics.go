// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Detection metrics
	FramesRead        *prometheus.CounterVec
	IntervalsDetected *prometheus.CounterVec
	ReplicatesDropped prometheus.Counter

	// Clustering metrics
	SitesFound         *prometheus.CounterVec
	DegenerateClusters prometheus.Counter

	// Kinetics metrics
	KineticsFits       *prometheus.CounterVec
	InsufficientSites  *prometheus.CounterVec
	UnreliableSites    *prometheus.CounterVec
	AmbiguousMatches   prometheus.Counter
	PosesExported      prometheus.Counter
	ArtifactsPublished prometheus.Counter

	// Pipeline metrics
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default
// registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "lipid_site_lab"
	}
	f := promauto.With(reg)

	return &Metrics{
		FramesRead: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "frames_read_total",
			Help:      "Total number of trajectory frames read by replicate",
		}, []string{"replicate"}),
		IntervalsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "intervals_detected_total",
			Help:      "Total number of residue contact intervals by species",
		}, []string{"species"}),
		ReplicatesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "replicates_dropped_total",
			Help:      "Total number of replicates dropped for input data errors",
		}),

		SitesFound: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clustering",
			Name:      "sites_found_total",
			Help:      "Total number of binding sites by species",
		}, []string{"species"}),
		DegenerateClusters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clustering",
			Name:      "degenerate_total",
			Help:      "Total number of species that produced no binding site",
		}),

		KineticsFits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kinetics",
			Name:      "fits_total",
			Help:      "Total number of survival fits by model",
		}, []string{"model"}),
		InsufficientSites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kinetics",
			Name:      "insufficient_sites_total",
			Help:      "Total number of sites without enough closed intervals",
		}, []string{"species"}),
		UnreliableSites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "unreliable_sites_total",
			Help:      "Total number of sites flagged unreliable",
		}, []string{"species"}),
		AmbiguousMatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "correspondence",
			Name:      "ambiguous_matches_total",
			Help:      "Total number of correspondence ties resolved by tie-break",
		}),
		PosesExported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "poses_total",
			Help:      "Total number of representative poses written",
		}),
		ArtifactsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "artifacts_total",
			Help:      "Total number of artifacts written to sinks",
		}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by mode and status",
		}, []string{"mode", "status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800},
		}, []string{"stage"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(mode, status string, finishedUnix int64) {
	m.RunsTotal.WithLabelValues(mode, status).Inc()
	if status == "ok" {
		m.LastSuccessfulRun.Set(float64(finishedUnix))
	}
}

// RecordFit counts one survival fit by model; an empty model counts as "none".
func (m *Metrics) RecordFit(model string) {
	if model == "" {
		model = "none"
	}
	m.KineticsFits.WithLabelValues(model).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
