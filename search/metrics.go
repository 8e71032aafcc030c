package search

import (
	"errors"
	"time"

	"github.com/poiesic/policygraph/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMonitor records search metrics.
type PrometheusMonitor struct {
	searchesTotal   *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageItems      *prometheus.HistogramVec
	searchDuration  prometheus.Histogram
	degradedTotal   prometheus.Counter
	referencesTotal prometheus.Counter
}

var _ SearchMonitor = (*PrometheusMonitor)(nil)

// NewPrometheusMonitor registers search metrics on reg under namespace.
func NewPrometheusMonitor(namespace string, reg prometheus.Registerer) *PrometheusMonitor {
	factory := promauto.With(reg)
	return &PrometheusMonitor{
		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of searches by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_stage_duration_seconds",
				Help:      "Retriever stage duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		stageItems: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_stage_items",
				Help:      "Items produced per search stage",
				Buckets:   prometheus.LinearBuckets(0, 5, 10),
			},
			[]string{"stage"},
		),
		searchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "End-to-end search duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		degradedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_degraded_total",
				Help:      "Searches answered from a single signal",
			},
		),
		referencesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_references_total",
				Help:      "Cross-referenced clauses attached to responses",
			},
		),
	}
}

func (m *PrometheusMonitor) Start(string, Query) {}

func (m *PrometheusMonitor) AfterGraph(_ string, hits []Hit, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(string(StageGraph)).Observe(elapsed.Seconds())
	m.stageItems.WithLabelValues(string(StageGraph)).Observe(float64(len(hits)))
}

func (m *PrometheusMonitor) AfterVector(_ string, hits []Hit, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(string(StageVector)).Observe(elapsed.Seconds())
	m.stageItems.WithLabelValues(string(StageVector)).Observe(float64(len(hits)))
}

func (m *PrometheusMonitor) AfterRank(_ string, results []RankedResult) {
	m.stageItems.WithLabelValues(string(StageRank)).Observe(float64(len(results)))
}

func (m *PrometheusMonitor) AfterExpand(_ string, refs []*core.Clause) {
	m.referencesTotal.Add(float64(len(refs)))
}

func (m *PrometheusMonitor) Finish(_ string, resp *Response, elapsed time.Duration) {
	outcome := "ok"
	if resp != nil && len(resp.Results) == 0 {
		outcome = "empty"
	}
	if resp != nil && resp.Degraded {
		m.degradedTotal.Inc()
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
}

func (m *PrometheusMonitor) Failed(_ string, err error, elapsed time.Duration) {
	m.searchesTotal.WithLabelValues(failureOutcome(err)).Inc()
	m.searchDuration.Observe(elapsed.Seconds())
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, core.ErrRetrieverTimeout):
		return "timeout"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrInvalidParameter), errors.Is(err, core.ErrDimensionMismatch):
		return "invalid"
	default:
		return "error"
	}
}
