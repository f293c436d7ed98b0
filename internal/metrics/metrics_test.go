package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTool(t *testing.T) {
	m := New(nil)

	m.ObserveTool("weather", OutcomeSuccess, 10*time.Millisecond)
	m.ObserveTool("weather", OutcomeFailure, 5*time.Millisecond)
	m.ObserveTool("weather", OutcomeSuccess, time.Millisecond)
	m.ObserveTool("nope", OutcomeUnknown, 0)
	m.ObserveTool("other", OutcomeUnknown, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("weather", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues("weather", OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ToolInvocations.WithLabelValues(UnknownToolLabel, OutcomeUnknown)))
	assert.Equal(t, 3, testutil.CollectAndCount(m.ToolInvocations))
}

func TestSessions(t *testing.T) {
	m := New(nil)

	m.SessionStarted()
	m.SessionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))

	m.SessionEnded(nil)
	m.SessionEnded(errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTool("weather", OutcomeSuccess, time.Second)
	m.SessionStarted()
	m.SessionEnded(nil)
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveTool("searchWeb", OutcomeSuccess, time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["assistant_tool_invocations_total"])
	assert.True(t, names["assistant_tool_duration_seconds"])
}
