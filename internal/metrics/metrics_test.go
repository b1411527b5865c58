package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordEvent(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordEvent("callback", "hist", "ok", 10*time.Millisecond)
	m.RecordEvent("callback", "hist", "ok", 20*time.Millisecond)
	m.RecordEvent("callback", "bogus", "malformed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("callback", "hist", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("callback", "bogus", "malformed")))
}

func TestRecordAnalysis(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAnalysis(false, time.Second)
	m.RecordAnalysis(true, 2*time.Second)
	m.RecordAnalysis(true, 3*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("degraded")))
}

func TestFlows(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.FlowStarted("awaiting_note_text")
	m.FlowCompleted("awaiting_note_text", "cancelled")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowsStartedTotal.WithLabelValues("awaiting_note_text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowsCompletedTotal.WithLabelValues("awaiting_note_text", "cancelled")))
}
