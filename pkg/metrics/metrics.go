package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is served on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Custom histogram buckets for API and store round-trips, milliseconds to 30+ seconds
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Document store client metrics
	StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StoreOperationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of document store operations",
		},
		[]string{"operation", "status"},
	)

	// Business Metrics
	LogSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingmentor_log_submissions_total",
			Help: "Total number of mentorship log submissions",
		},
		[]string{"status"},
	)

	LogReconciliations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingmentor_log_reconciliations_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"outcome"}, // "verified", "unmatched", "error"
	)

	LogsVerified = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "wingmentor_logs_verified_total",
			Help: "Total number of mentorship logs promoted to verified",
		},
	)

	SubmissionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wingmentor_log_submission_duration_seconds",
			Help:    "Duration of log submission including reconciliation",
			Buckets: CustomAPIBuckets,
		},
	)

	DirectorySearches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingmentor_directory_searches_total",
			Help: "Total number of directory searches",
		},
		[]string{"status"},
	)

	DirectoryResultsReturned = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wingmentor_directory_results_returned",
			Help:    "Number of profiles returned by directory searches",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200},
		},
	)

	ChatMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingmentor_chat_messages_total",
			Help: "Total number of chat messages sent",
		},
		[]string{"status"},
	)

	ChatsCreated = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "wingmentor_chats_created_total",
			Help: "Total number of chat threads created",
		},
	)

	ActiveSubscriptions = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "wingmentor_active_subscriptions",
			Help: "Number of live message subscriptions",
		},
	)

	Enrollments = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wingmentor_enrollments_total",
			Help: "Total number of enrollment operations",
		},
		[]string{"operation", "status"},
	)

	// Infrastructure Metrics
	GoRoutines = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

func init() {
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// ObserveStoreOperation records duration and outcome of a document store call
func ObserveStoreOperation(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperationDuration.WithLabelValues(operation, status).Observe(MeasureDuration(start))
	StoreOperationTotal.WithLabelValues(operation, status).Inc()
}
