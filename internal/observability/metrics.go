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
	SignalsAdmitted  prometheus.Counter
	SignalsRejected  *prometheus.CounterVec
	FilesScanned     prometheus.Counter
	MalformedFiles   prometheus.Counter

	// Registry metrics
	ActiveTrackers prometheus.Gauge

	// Evaluation metrics
	ResultsResolved  *prometheus.CounterVec
	EvaluationTicks  prometheus.Counter
	QuoteMisses      prometheus.Counter
	FeedPollLatency  prometheus.Histogram
	FeedPollErrors   prometheus.Counter

	// Truth log metrics
	ResultsLogged       *prometheus.CounterVec
	TruthLogWriteErrors prometheus.Counter
	TruthLogRejections  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPoll prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "signal_truth"
	}

	return &Metrics{
		SignalsAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "signals_admitted_total",
			Help:      "Total number of signals admitted into the registry",
		}),
		SignalsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "signals_rejected_total",
			Help:      "Total number of signals rejected by reason",
		}, []string{"reason"}),
		FilesScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "files_scanned_total",
			Help:      "Total number of new declaration files scanned",
		}),
		MalformedFiles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "malformed_files_total",
			Help:      "Total number of declaration files that failed to parse",
		}),

		ActiveTrackers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "active_trackers",
			Help:      "Current number of signals being watched",
		}),

		ResultsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "results_resolved_total",
			Help:      "Total number of trackers resolved by outcome and unit system",
		}, []string{"outcome", "unit_system"}),
		EvaluationTicks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "ticks_total",
			Help:      "Total number of evaluation ticks",
		}),
		QuoteMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "quote_misses_total",
			Help:      "Total number of tracker evaluations skipped for lack of a quote",
		}),
		FeedPollLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "poll_latency_seconds",
			Help:      "Market feed poll latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FeedPollErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "poll_errors_total",
			Help:      "Total number of failed market feed polls",
		}),

		ResultsLogged: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truthlog",
			Name:      "results_logged_total",
			Help:      "Total number of results appended by outcome and unit system",
		}, []string{"outcome", "unit_system"}),
		TruthLogWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truthlog",
			Name:      "write_errors_total",
			Help:      "Total number of truth log write failures",
		}),
		TruthLogRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "truthlog",
			Name:      "rejections_total",
			Help:      "Total number of results rejected before writing by reason",
		}, []string{"reason"}),

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

		LastSuccessfulPoll: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_poll_timestamp",
			Help:      "Unix timestamp of the last successful market feed poll",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignalAdmitted increments the admitted counter.
func RecordSignalAdmitted() {
	DefaultMetrics.SignalsAdmitted.Inc()
}

// RecordSignalRejected records a rejected signal with its reason.
func RecordSignalRejected(reason string) {
	DefaultMetrics.SignalsRejected.WithLabelValues(reason).Inc()
}

// RecordFileScanned increments the scanned-files counter.
func RecordFileScanned() {
	DefaultMetrics.FilesScanned.Inc()
}

// RecordMalformedFile increments the malformed-files counter.
func RecordMalformedFile() {
	DefaultMetrics.MalformedFiles.Inc()
}

// UpdateActiveTrackers updates the active trackers gauge.
func UpdateActiveTrackers(n int) {
	DefaultMetrics.ActiveTrackers.Set(float64(n))
}

// RecordResolved records a resolved tracker.
func RecordResolved(outcome, unitSystem string) {
	DefaultMetrics.ResultsResolved.WithLabelValues(outcome, unitSystem).Inc()
}

// RecordEvaluationTick increments the evaluation tick counter.
func RecordEvaluationTick() {
	DefaultMetrics.EvaluationTicks.Inc()
}

// RecordQuoteMiss increments the skipped-for-no-quote counter.
func RecordQuoteMiss() {
	DefaultMetrics.QuoteMisses.Inc()
}

// RecordFeedPoll records one market feed poll.
func RecordFeedPoll(seconds float64, err error) {
	DefaultMetrics.FeedPollLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.FeedPollErrors.Inc()
	}
}

// MarkFeedPollSuccess stamps the health gauge.
func MarkFeedPollSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulPoll.Set(float64(unixSeconds))
}

// RecordResultLogged records a truth log append.
func RecordResultLogged(outcome, unitSystem string) {
	DefaultMetrics.ResultsLogged.WithLabelValues(outcome, unitSystem).Inc()
}

// RecordTruthLogWriteError increments the write failure counter.
func RecordTruthLogWriteError() {
	DefaultMetrics.TruthLogWriteErrors.Inc()
}

// RecordTruthLogRejection records a result refused before writing.
func RecordTruthLogRejection(reason string) {
	DefaultMetrics.TruthLogRejections.WithLabelValues(reason).Inc()
}

// TickUptime adds elapsed seconds to the uptime counter.
func TickUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
