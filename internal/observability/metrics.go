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
	// Ingestion metrics
	DaysIngested    prometheus.Counter
	DaysOverwritten prometheus.Counter
	DaysFilled      prometheus.Counter
	DaysSkipped     prometheus.Counter
	DayErrors       *prometheus.CounterVec
	RecordsApplied  prometheus.Counter
	RatingsApplied  prometheus.Counter

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Reporting metrics
	ReportsGenerated *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "harvest_reports"
	}

	return &Metrics{
		DaysIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "days_ingested_total",
			Help:      "Total number of report days ingested",
		}),
		DaysOverwritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "days_overwritten_total",
			Help:      "Total number of report days re-ingested with overwrite",
		}),
		DaysFilled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "days_filled_total",
			Help:      "Total number of gap days filled with zero-activity placeholders",
		}),
		DaysSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "days_skipped_total",
			Help:      "Total number of report days skipped as already ingested",
		}),
		DayErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "day_errors_total",
			Help:      "Total number of report days that failed ingestion by error type",
		}, []string{"error_type"}),
		RecordsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_applied_total",
			Help:      "Total number of sales records applied to cumulative state",
		}),
		RatingsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ratings_applied_total",
			Help:      "Total number of rating events applied",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of harvest runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Harvest run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated by format",
		}, []string{"format"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful harvest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordDayIngested increments the ingested-days counter, tracking
// overwrites separately.
func RecordDayIngested(overwrite bool) {
	DefaultMetrics.DaysIngested.Inc()
	if overwrite {
		DefaultMetrics.DaysOverwritten.Inc()
	}
}

// RecordDayFilled increments the filled-days counter.
func RecordDayFilled() {
	DefaultMetrics.DaysFilled.Inc()
}

// RecordDaySkipped increments the skipped-days counter.
func RecordDaySkipped() {
	DefaultMetrics.DaysSkipped.Inc()
}

// RecordDayError records a failed report day by error type.
func RecordDayError(errorType string) {
	DefaultMetrics.DayErrors.WithLabelValues(errorType).Inc()
}

// RecordRecordsApplied adds to the applied-records counter.
func RecordRecordsApplied(n int) {
	DefaultMetrics.RecordsApplied.Add(float64(n))
}

// RecordRatingsApplied adds to the applied-ratings counter.
func RecordRatingsApplied(n int) {
	DefaultMetrics.RatingsApplied.Add(float64(n))
}

// RecordRun records a harvest run outcome.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordReportGenerated increments the generated-reports counter.
func RecordReportGenerated(format string) {
	DefaultMetrics.ReportsGenerated.WithLabelValues(format).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
