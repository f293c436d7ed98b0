// Package metrics holds the Prometheus collectors for tool dispatch and
// conversation sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for tool invocations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomeUnknown = "unknown_tool"
)

// UnknownToolLabel replaces the tool label of calls to unregistered names,
// which come from untrusted input.
const UnknownToolLabel = "_unknown"

// Metrics groups the assistant collectors.
type Metrics struct {
	ToolInvocations *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	Sessions        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ToolInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assistant",
				Name:      "tool_invocations_total",
				Help:      "Tool invocations by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "assistant",
				Name:      "tool_duration_seconds",
				Help:      "Tool handler latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assistant",
			Name:      "sessions_active",
			Help:      "Conversation sessions currently running.",
		}),
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "assistant",
				Name:      "sessions_total",
				Help:      "Finished conversation sessions by result.",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ToolInvocations, m.ToolDuration, m.ActiveSessions, m.Sessions)
	}
	return m
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == OutcomeUnknown {
		tool = UnknownToolLabel
	}
	m.ToolInvocations.WithLabelValues(tool, outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeFailure {
		m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
	}
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active session gauge and counts the result.
func (m *Metrics) SessionEnded(err error) {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Sessions.WithLabelValues(result).Inc()
}
