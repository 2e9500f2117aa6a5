package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
)

// AppMetrics bundles every metric the platform records. Services receive the
// struct and touch only the fields they care about; a nil *AppMetrics is safe
// everywhere via the Record helpers.
type AppMetrics struct {
	collector MetricsCollector

	// HTTP surface.
	HTTPRequestsTotal   CounterVec // method, route, status
	HTTPRequestDuration HistogramVec
	HTTPInFlight        GaugeVec // route

	// Search orchestration.
	SearchSubmissionsTotal CounterVec   // outcome: completed|failed|timeout|cache_hit
	SearchPollCycles       HistogramVec // polls until terminal state
	SearchJobDuration      HistogramVec // submit to terminal state, seconds

	// Result and analysis caches.
	CacheLookupsTotal CounterVec // cache, tier, outcome: hit|miss|error

	// Quota accounting.
	QuotaDecisionsTotal CounterVec // decision: allowed|denied|unlimited
	QuotaIncrements     CounterVec // outcome: applied|duplicate|failed

	// Dr. Root assistant.
	AssistantCompletions       CounterVec   // operation, outcome
	AssistantCompletionSeconds HistogramVec // operation

	// Event publishing.
	EventPublishesTotal CounterVec // topic, outcome

	// Reconciliation.
	ReconcilerDriftTotal CounterVec // resource: seat_count|ledger
}

// NewAppMetrics registers the application metric set on collector. A nil
// collector yields a nil *AppMetrics, which every method tolerates.
func NewAppMetrics(collector MetricsCollector, log logging.Logger) *AppMetrics {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if collector == nil {
		log.Warn("metrics collector absent, metrics disabled")
		return nil
	}

	durationBuckets := []float64{0.005, 0.025, 0.1, 0.25, 1, 2.5, 10, 30, 60}
	jobBuckets := []float64{1, 5, 15, 30, 60, 120, 300, 600, 900}
	pollBuckets := []float64{1, 2, 3, 5, 10, 20, 50, 100}

	return &AppMetrics{
		collector: collector,

		HTTPRequestsTotal: collector.RegisterCounter(
			"http_requests_total", "HTTP requests served.", "method", "route", "status"),
		HTTPRequestDuration: collector.RegisterHistogram(
			"http_request_duration_seconds", "HTTP request latency.", durationBuckets, "method", "route"),
		HTTPInFlight: collector.RegisterGauge(
			"http_requests_in_flight", "HTTP requests currently being served.", "route"),

		SearchSubmissionsTotal: collector.RegisterCounter(
			"search_submissions_total", "Search submissions by terminal outcome.", "outcome"),
		SearchPollCycles: collector.RegisterHistogram(
			"search_poll_cycles", "Status polls issued before a job reached a terminal state.", pollBuckets),
		SearchJobDuration: collector.RegisterHistogram(
			"search_job_duration_seconds", "Wall time from submission to terminal state.", jobBuckets),

		CacheLookupsTotal: collector.RegisterCounter(
			"cache_lookups_total", "Cache lookups by cache, tier and outcome.", "cache", "tier", "outcome"),

		QuotaDecisionsTotal: collector.RegisterCounter(
			"quota_decisions_total", "Quota gate decisions.", "decision"),
		QuotaIncrements: collector.RegisterCounter(
			"quota_increments_total", "Quota usage increments by outcome.", "outcome"),

		AssistantCompletions: collector.RegisterCounter(
			"assistant_completions_total", "Assistant completion calls.", "operation", "outcome"),
		AssistantCompletionSeconds: collector.RegisterHistogram(
			"assistant_completion_duration_seconds", "Assistant completion latency.", durationBuckets, "operation"),

		EventPublishesTotal: collector.RegisterCounter(
			"event_publishes_total", "Billing event publishes.", "topic", "outcome"),

		ReconcilerDriftTotal: collector.RegisterCounter(
			"reconciler_drift_total", "Drift repaired by the reconciler.", "resource"),
	}
}

// Handler exposes the scrape endpoint, or a 404 handler when metrics are off.
func (m *AppMetrics) Handler() http.Handler {
	if m == nil || m.collector == nil {
		return http.NotFoundHandler()
	}
	return m.collector.Handler()
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordSearchOutcome records a finished search submission.
func (m *AppMetrics) RecordSearchOutcome(outcome string, polls int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchSubmissionsTotal.WithLabelValues(outcome).Inc()
	if polls > 0 {
		m.SearchPollCycles.WithLabelValues().Observe(float64(polls))
	}
	m.SearchJobDuration.WithLabelValues().Observe(elapsed.Seconds())
}

// RecordCacheLookup records a tiered cache probe.
func (m *AppMetrics) RecordCacheLookup(cache, tier, outcome string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(cache, tier, outcome).Inc()
}

// RecordQuotaDecision records a gate verdict.
func (m *AppMetrics) RecordQuotaDecision(decision string) {
	if m == nil {
		return
	}
	m.QuotaDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordQuotaIncrement records a usage increment attempt.
func (m *AppMetrics) RecordQuotaIncrement(outcome string) {
	if m == nil {
		return
	}
	m.QuotaIncrements.WithLabelValues(outcome).Inc()
}

// RecordAssistantCompletion records one model round trip.
func (m *AppMetrics) RecordAssistantCompletion(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AssistantCompletions.WithLabelValues(operation, outcome).Inc()
	m.AssistantCompletionSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordEventPublish records a Kafka publish attempt.
func (m *AppMetrics) RecordEventPublish(topic, outcome string) {
	if m == nil {
		return
	}
	m.EventPublishesTotal.WithLabelValues(topic, outcome).Inc()
}

// RecordReconcilerDrift records a repaired inconsistency.
func (m *AppMetrics) RecordReconcilerDrift(resource string) {
	if m == nil {
		return
	}
	m.ReconcilerDriftTotal.WithLabelValues(resource).Inc()
}
