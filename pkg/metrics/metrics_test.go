package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStart(ResultSuccess)
	m.ObserveStart(ResultFailure)
	m.ObserveStart(ResultSuccess)
	m.ObserveRestart(ResultSuppressed)
	m.ObserveExit(CauseUnexpected)
	m.ObserveLogLine("stdout", "warn")
	m.SetUp(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.starts.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.starts.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.restarts.WithLabelValues(ResultSuppressed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exits.WithLabelValues(CauseUnexpected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logLines.WithLabelValues("stdout", "warn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.up))

	m.SetUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.up))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStart(ResultSuccess)
		m.ObserveRestart(ResultFailure)
		m.ObserveExit(CauseShutdown)
		m.ObserveLogLine("stderr", "error")
		m.SetUp(true)
	})
}
