// Package metrics provides Prometheus metrics for the podium grading service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Grading metrics.
	roundsGraded    *prometheus.CounterVec
	gradingDuration prometheus.Histogram
	participants    prometheus.Gauge

	// Normalization and solver metrics.
	solverRuns       *prometheus.CounterVec
	solverIterations prometheus.Histogram
	solverFailures   *prometheus.CounterVec

	// Result cache metrics.
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheRefreshes prometheus.Counter

	// Answer store metrics.
	answersSubmitted    prometheus.Counter
	placeholdersCreated prometheus.Counter
	storeQueryDuration  prometheus.Histogram

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager backed by a custom registry so default Go collectors stay out.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.roundsGraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rounds_graded_total",
		Help:      "Number of round grading passes, by round ref.",
	}, []string{"round"})
	m.gradingDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "grading_duration_seconds",
		Help:      "Wall time of a full round grading pass.",
		Buckets:   m.histogramBuckets,
	})
	m.participants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "participants",
		Help:      "Participants covered by the most recent grading pass.",
	})

	m.solverRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "solver_runs_total",
		Help:      "Numerical solver invocations, by solver kind.",
	}, []string{"solver"})
	m.solverIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "solver_iterations",
		Help:      "Iterations used per solver invocation.",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})
	m.solverFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "solver_failures_total",
		Help:      "Solver runs that did not converge, by solver kind.",
	}, []string{"solver"})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "result_cache_hits_total",
		Help:      "Result cache reads served from a stored entry.",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "result_cache_misses_total",
		Help:      "Result cache reads that triggered a computation.",
	})
	m.cacheRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "result_cache_refreshes_total",
		Help:      "Forced recomputations overwriting a cache entry.",
	})

	m.answersSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "answers_submitted_total",
		Help:      "Score entries written through the API.",
	})
	m.placeholdersCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "answer_placeholders_created_total",
		Help:      "Blank answer rows created ahead of score entry.",
	})
	m.storeQueryDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "store_query_duration_seconds",
		Help:      "Answer store query latency.",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by endpoint and method.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// Package-level helpers operating on the global manager.

// RecordRoundGraded increments the grading counter for a round ref.
func RecordRoundGraded(round string) {
	if globalManager.enabled {
		globalManager.roundsGraded.WithLabelValues(round).Inc()
	}
}

// RecordGradingDuration observes the wall time of a grading pass.
func RecordGradingDuration(seconds float64) {
	if globalManager.enabled {
		globalManager.gradingDuration.Observe(seconds)
	}
}

// UpdateParticipants sets the participant gauge.
func UpdateParticipants(n int) {
	if globalManager.enabled {
		globalManager.participants.Set(float64(n))
	}
}

// RecordSolverRun counts a solver invocation.
func RecordSolverRun(solver string) {
	if globalManager.enabled {
		globalManager.solverRuns.WithLabelValues(solver).Inc()
	}
}

// RecordSolverIterations observes how many iterations a solve took.
func RecordSolverIterations(n int) {
	if globalManager.enabled {
		globalManager.solverIterations.Observe(float64(n))
	}
}

// RecordSolverFailure counts a non-converged solve.
func RecordSolverFailure(solver string) {
	if globalManager.enabled {
		globalManager.solverFailures.WithLabelValues(solver).Inc()
	}
}

// RecordCacheHit counts a cache read served from a stored entry.
func RecordCacheHit() {
	if globalManager.enabled {
		globalManager.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a cache read that computed fresh.
func RecordCacheMiss() {
	if globalManager.enabled {
		globalManager.cacheMisses.Inc()
	}
}

// RecordCacheRefresh counts a forced recomputation.
func RecordCacheRefresh() {
	if globalManager.enabled {
		globalManager.cacheRefreshes.Inc()
	}
}

// RecordAnswerSubmitted counts a score entry write.
func RecordAnswerSubmitted() {
	if globalManager.enabled {
		globalManager.answersSubmitted.Inc()
	}
}

// RecordPlaceholderCreated counts a blank answer row creation.
func RecordPlaceholderCreated() {
	if globalManager.enabled {
		globalManager.placeholdersCreated.Inc()
	}
}

// RecordStoreQueryDuration observes answer store latency.
func RecordStoreQueryDuration(seconds float64) {
	if globalManager.enabled {
		globalManager.storeQueryDuration.Observe(seconds)
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

// RecordHTTPRequestDuration observes HTTP latency.
func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
	}
}

// GetRegistry exposes the custom registry for the exposition handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
