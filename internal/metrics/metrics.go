// Package metrics provides Prometheus metrics for the bot
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bot
type Metrics struct {
	// Inbound events
	EventsTotal   *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec

	// AI analysis
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram

	// Flow lifecycle
	FlowsStartedTotal   *prometheus.CounterVec
	FlowsCompletedTotal *prometheus.CounterVec
}

// New creates the metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibe_events_total",
				Help: "Total number of inbound chat events",
			},
			[]string{"kind", "verb", "outcome"},
		),
		EventDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vibe_event_duration_seconds",
				Help:    "Duration of inbound event handling in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibe_analyses_total",
				Help: "Total number of note analyses",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vibe_analysis_duration_seconds",
				Help:    "Duration of AI analysis calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
		),
		FlowsStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibe_flows_started_total",
				Help: "Total number of multi-step flows entered",
			},
			[]string{"flow"},
		),
		FlowsCompletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibe_flows_completed_total",
				Help: "Total number of multi-step flows finished",
			},
			[]string{"flow", "outcome"},
		),
	}
}

// RecordEvent records one handled event
func (m *Metrics) RecordEvent(kind, verb, outcome string, duration time.Duration) {
	m.EventsTotal.WithLabelValues(kind, verb, outcome).Inc()
	m.EventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordAnalysis records one AI analysis call
func (m *Metrics) RecordAnalysis(degraded bool, duration time.Duration) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.AnalysisDuration.Observe(duration.Seconds())
}

func (m *Metrics) FlowStarted(flow string) {
	m.FlowsStartedTotal.WithLabelValues(flow).Inc()
}

func (m *Metrics) FlowCompleted(flow, outcome string) {
	m.FlowsCompletedTotal.WithLabelValues(flow, outcome).Inc()
}
