package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Jobs
	JobsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testgen_jobs_created_total",
			Help: "Total number of generation jobs submitted",
		},
	)
	JobsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_jobs_rejected_total",
			Help: "Submissions rejected before a job was created",
		},
		[]string{"reason"}, // reason: missing_configuration|unknown_preset
	)
	JobStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_job_status_changes_total",
			Help: "Number of job status transitions",
		},
		[]string{"from", "to"},
	)
	ActiveJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testgen_jobs_active",
			Help: "Current number of running jobs",
		},
	)
	JobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testgen_jobs_queued",
			Help: "Jobs waiting in created state at the last worker pass",
		},
	)
	JobDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "testgen_job_duration_seconds",
			Help:    "Histogram of job durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
	)

	// Validation
	ValidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_validation_runs_total",
			Help: "Number of validation runs by validator and result",
		},
		[]string{"validator", "result"}, // result: pass|fail
	)

	// Generator
	GeneratorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_generator_requests_total",
			Help: "Number of generator calls by generator name",
		},
		[]string{"generator"},
	)

	// Settings
	SettingsUpdates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testgen_settings_updates_total",
			Help: "Number of applied settings updates",
		},
	)

	// Storage ops
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_store_ops_total",
			Help: "Storage operations performed",
		},
		[]string{"backend", "op"}, // op: get|put|delete|list|count
	)

	// Websockets
	WebsocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testgen_ws_connections",
			Help: "Current number of open job event streams",
		},
	)

	// HTTP
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "route", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testgen_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		JobsCreated,
		JobsRejected,
		JobStatusChanges,
		ActiveJobs,
		JobsQueued,
		JobDurationSeconds,

		ValidationRuns,
		GeneratorRequests,
		SettingsUpdates,
		StoreOps,
		WebsocketConnections,

		HTTPRequestDuration,
		HTTPRequests,
		HTTPErrors,

		Errors,
	)
}

// StartMetricsServer serves /metrics on addr until the listener fails.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Jobs
func IncJobsCreated() {
	JobsCreated.Inc()
}

func IncJobRejected(reason string) {
	JobsRejected.WithLabelValues(reason).Inc()
}

func IncJobStatusChange(from, to string) {
	JobStatusChanges.WithLabelValues(from, to).Inc()
}

func SetActiveJobs(n int) {
	ActiveJobs.Set(float64(n))
}

func SetJobsQueued(n int) {
	JobsQueued.Set(float64(n))
}

func ObserveJobDuration(d time.Duration) {
	JobDurationSeconds.Observe(d.Seconds())
}

// Validation
func IncValidationRun(validator, result string) {
	ValidationRuns.WithLabelValues(validator, result).Inc()
}

func IncGeneratorRequest(generator string) {
	GeneratorRequests.WithLabelValues(generator).Inc()
}

func IncSettingsUpdate() {
	SettingsUpdates.Inc()
}

func IncStoreOp(backend, op string) {
	StoreOps.WithLabelValues(backend, op).Inc()
}

// Websocket
func IncWSConnections() {
	WebsocketConnections.Inc()
}

func DecWSConnections() {
	WebsocketConnections.Dec()
}

// HTTP
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	statusStr := strconv.Itoa(status)
	HTTPRequests.WithLabelValues(method, route).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, statusStr).Observe(d.Seconds())
	if status >= 400 {
		HTTPErrors.WithLabelValues(method, route, statusStr).Inc()
	}
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
