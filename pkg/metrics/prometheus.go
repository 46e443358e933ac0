// Package metrics provides Prometheus metrics for the fleetpower service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by fleetpower.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	accountsScored prometheus.Counter
	scoringLatency prometheus.Histogram
	scoringErrors  prometheus.Counter
	powerByTier    *prometheus.GaugeVec

	// Snapshot providers and chain reads
	snapshotsFetched     *prometheus.CounterVec
	providerErrors       *prometheus.CounterVec
	chainCallLatency     *prometheus.HistogramVec
	chainCallErrors      *prometheus.CounterVec
	holderScanTokens     prometheus.Counter
	holderScanSkipped    prometheus.Counter
	refreshDuration      prometheus.Histogram
	refreshRuns          *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
	historyWrites        *prometheus.CounterVec

	// Queue and workers
	jobsDuplicate      prometheus.Counter
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueRejected      prometheus.Counter
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// Board
	boardSize              prometheus.Gauge
	boardUpdates           prometheus.Counter
	boardPublishDuration   prometheus.Histogram
	boardPublishLastUnix   prometheus.Gauge
	boardPublishCount      prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fleetpower",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.accountsScored = m.counter("accounts_scored_total", "Total number of account snapshots scored")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Power computation latency in milliseconds")
	m.scoringErrors = m.counter("scoring_errors_total", "Total number of scoring failures")
	m.powerByTier = m.gaugeVec("accounts_by_tier", "Number of ranked accounts per power tier", "tier")

	m.snapshotsFetched = m.counterVec("snapshots_fetched_total", "Account snapshots fetched by provider", "provider")
	m.providerErrors = m.counterVec("provider_errors_total", "Snapshot provider failures", "provider", "operation")
	m.chainCallLatency = m.histogramVec("chain_call_latency_milliseconds", "Contract call latency in milliseconds", "contract", "method")
	m.chainCallErrors = m.counterVec("chain_call_errors_total", "Failed contract calls", "contract", "method")
	m.holderScanTokens = m.counter("holder_scan_tokens_total", "Token ids read while scanning for holders")
	m.holderScanSkipped = m.counter("holder_scan_skipped_total", "Token ids skipped because ownerOf failed")
	m.refreshDuration = m.histogram("refresh_duration_milliseconds", "Full board rebuild duration in milliseconds")
	m.refreshRuns = m.counterVec("refresh_runs_total", "Board rebuilds by outcome", "outcome")
	m.cacheLookups = m.counterVec("snapshot_cache_lookups_total", "Snapshot cache lookups by backend and result", "backend", "result")
	m.historyWrites = m.counterVec("history_writes_total", "Board history writes by outcome", "outcome")

	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Rescore requests dropped because the account was already pending")
	m.queueSize = m.gauge("queue_size", "Current number of pending rescore jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected because the queue was full or closed")
	m.workerCount = m.gauge("worker_count", "Number of running workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Per-job processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed in a worker")

	m.boardSize = m.gauge("board_size", "Number of accounts on the leaderboard")
	m.boardUpdates = m.counter("board_updates_total", "Board entry upserts and removals")
	m.boardPublishDuration = m.histogram("board_publish_duration_milliseconds", "Ranked snapshot rebuild duration in milliseconds")
	m.boardPublishLastUnix = m.gauge("board_publish_last_unix", "Unix timestamp of the last ranked snapshot publish")
	m.boardPublishCount = m.counter("board_publish_total", "Ranked snapshots published")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
}

// RecordAccountScored counts one scored snapshot.
func RecordAccountScored() { globalManager.accountsScored.Inc() }

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) { globalManager.scoringLatency.Observe(latencyMs) }

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() { globalManager.scoringErrors.Inc() }

// UpdateTierCounts replaces the per-tier account gauge.
func UpdateTierCounts(counts map[string]int) {
	globalManager.powerByTier.Reset()
	for tier, n := range counts {
		globalManager.powerByTier.WithLabelValues(tier).Set(float64(n))
	}
}

// RecordSnapshotFetched counts a snapshot returned by a provider.
func RecordSnapshotFetched(provider string) {
	globalManager.snapshotsFetched.WithLabelValues(provider).Inc()
}

// RecordProviderError counts a provider failure for an operation (holders, snapshot).
func RecordProviderError(provider, operation string) {
	globalManager.providerErrors.WithLabelValues(provider, operation).Inc()
}

// RecordChainCall records the latency of one contract call.
func RecordChainCall(contract, method string, latencyMs float64, err error) {
	globalManager.chainCallLatency.WithLabelValues(contract, method).Observe(latencyMs)
	if err != nil {
		globalManager.chainCallErrors.WithLabelValues(contract, method).Inc()
	}
}

// RecordHolderScan records how many token ids were scanned and how many failed.
func RecordHolderScan(scanned, skipped int) {
	globalManager.holderScanTokens.Add(float64(scanned))
	globalManager.holderScanSkipped.Add(float64(skipped))
}

// RecordRefresh records a board rebuild; outcome is ok, error or skipped.
func RecordRefresh(outcome string, latencyMs float64) {
	globalManager.refreshRuns.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		globalManager.refreshDuration.Observe(latencyMs)
	}
}

// RecordCacheLookup records a snapshot cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordHistoryWrite records a board history write.
func RecordHistoryWrite(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.historyWrites.WithLabelValues(outcome).Inc()
}

// RecordJobDuplicate increments the duplicate job counter.
func RecordJobDuplicate() { globalManager.jobsDuplicate.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected increments the rejected-enqueue counter.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// UpdateBoardSize sets the number of ranked accounts.
func UpdateBoardSize(count int) { globalManager.boardSize.Set(float64(count)) }

// RecordBoardUpdate counts an entry upsert or removal.
func RecordBoardUpdate() { globalManager.boardUpdates.Inc() }

// RecordBoardPublish records a ranked snapshot publish.
func RecordBoardPublish(latencyMs float64, unix int64) {
	globalManager.boardPublishDuration.Observe(latencyMs)
	globalManager.boardPublishLastUnix.Set(float64(unix))
	globalManager.boardPublishCount.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
