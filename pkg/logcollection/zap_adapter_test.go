package logcollection

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapSinkLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core), "inst-1")

	f := NewForwarder(sink)
	w := f.StreamWriter(StdoutStream)
	_, _ = w.Write([]byte("{\"level\":\"warn\",\"msg\":\"slow node\",\"node\":7}\nplain\n"))
	_ = w.Close()
	e := f.StreamWriter(StderrStream)
	_, _ = e.Write([]byte("stack trace\n"))
	_ = e.Close()

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "slow node", entries[0].Message)
	assert.Equal(t, "gateway", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "inst-1", ctx["instance"])
	assert.Equal(t, "stdout", ctx["stream"])
	assert.Equal(t, float64(7), ctx["node"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "plain", entries[1].Message)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "stderr", entries[2].ContextMap()["stream"])
}

func TestNewZapLogger(t *testing.T) {
	logger, cleanup, err := NewZapLogger(ZapConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewZapLoggerInvalidLevelFallsBackToInfo(t *testing.T) {
	logger, cleanup, err := NewZapLogger(ZapConfig{Level: "loud", Format: "console"})
	require.NoError(t, err)
	defer cleanup()

	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
