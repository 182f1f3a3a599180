package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/canvas/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the canvas collectors.
type Metrics struct {
	nodeVisits    *prometheus.CounterVec
	nodeDuration  *prometheus.HistogramVec
	modelCalls    *prometheus.CounterVec
	modelDuration *prometheus.HistogramVec
	iterations    *prometheus.CounterVec
	scores        prometheus.Histogram
	gatherer      prometheus.Gatherer
}

// NewMetrics registers the collectors on reg. A nil reg uses a fresh
// registry, which keeps tests isolated from the default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_node_visits_total",
				Help: "Total number of graph node visits",
			},
			[]string{"node", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvas_node_duration_seconds",
				Help:    "Duration of graph node executions",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"node"},
		),
		modelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_model_calls_total",
				Help: "Total number of model calls",
			},
			[]string{"model", "status"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvas_model_duration_seconds",
				Help:    "Duration of model calls",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"model"},
		),
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_refine_iterations_total",
				Help: "Refinement rounds by iteration number",
			},
			[]string{"iteration"},
		),
		scores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canvas_refine_score",
				Help:    "Evaluation score of each refinement round",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.nodeVisits, m.nodeDuration, m.modelCalls, m.modelDuration, m.iterations, m.scores)
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(string(e.Node), status(e.IsError)).Inc()
			m.nodeDuration.WithLabelValues(string(e.Node)).Observe(e.Duration.Seconds())
		},
		OnModelReturn: func(ctx context.Context, e *domain.ModelEvent) {
			m.modelCalls.WithLabelValues(e.Model, status(e.IsError)).Inc()
			m.modelDuration.WithLabelValues(e.Model).Observe(e.Duration.Seconds())
		},
		OnIteration: func(ctx context.Context, e *domain.IterationEvent) {
			m.iterations.WithLabelValues(strconv.Itoa(e.Iteration)).Inc()
			m.scores.Observe(e.Score)
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func status(isError bool) string {
	if isError {
		return "error"
	}
	return "ok"
}
