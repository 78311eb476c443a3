// Package metrics defines the Prometheus collectors of the planner: job
// outcomes and durations per queue, subtopic update outcomes, critical quiz
// failures and HTTP request latency.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scry"

// Metrics holds the collectors registered with one registry.
type Metrics struct {
	JobOutcomes      *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	SubtopicOutcomes *prometheus.CounterVec
	CriticalFailures prometheus.Counter
	HTTPRequests     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the collectors with reg and serves from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_attempts_total",
			Help:      "Finished job attempts by queue and resulting state (completed, failed, delayed).",
		}, []string{"queue", "state"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job attempt duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"queue"}),

		SubtopicOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtopic_updates_total",
			Help:      "Subtopic updates by outcome (updated, quiz_generated, rolled_back, critical_failure).",
		}, []string{"outcome"}),

		CriticalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_critical_failures_total",
			Help:      "Subtopics left completed without a quiz because rollback failed.",
		}),

		HTTPRequests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		gatherer: gatherer,
	}
}

// ObserveJob records a worker pool outcome. It is a task.TerminalHook.
func (m *Metrics) ObserveJob(_ context.Context, o task.Outcome) {
	m.JobOutcomes.WithLabelValues(o.Queue, string(o.State)).Inc()
	m.JobDuration.WithLabelValues(o.Queue).Observe(o.Duration.Seconds())
}

// ObserveSubtopicOutcome counts one subtopic update result.
func (m *Metrics) ObserveSubtopicOutcome(outcome service.SubtopicOutcome) {
	m.SubtopicOutcomes.WithLabelValues(string(outcome)).Inc()
}

// CriticalFailure counts a critical quiz failure. It is a service.CriticalFailureHook.
func (m *Metrics) CriticalFailure(_ context.Context, _ *service.CriticalFailureError) {
	m.CriticalFailures.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled with the matched chi route
// pattern, so path parameters do not create new series.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
