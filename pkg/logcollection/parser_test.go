package logcollection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLineStdout(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		level      LogLevel
		message    string
		structured bool
	}{
		{name: "warn_long_keys", line: `{"level":"warn","msg":"x"}`, level: WarnLevel, message: "x", structured: true},
		{name: "error_short_keys", line: `{"L":"ERROR","M":"boom"}`, level: ErrorLevel, message: "boom", structured: true},
		{name: "fatal", line: `{"level":"fatal","msg":"dead"}`, level: ErrorLevel, message: "dead", structured: true},
		{name: "debug", line: `{"level":"debug","msg":"noise"}`, level: DebugLevel, message: "noise", structured: true},
		{name: "unknown_level", line: `{"level":"trace","msg":"t"}`, level: InfoLevel, message: "t", structured: true},
		{name: "missing_message_uses_line", line: `{"level":"warn"}`, level: WarnLevel, message: `{"level":"warn"}`, structured: true},
		{name: "quoted_string", line: `"hello"`, level: InfoLevel, message: `"hello"`},
		{name: "plain_text", line: "server listening on :5050", level: InfoLevel, message: "server listening on :5050"},
		{name: "broken_json", line: `{"level":"error"`, level: InfoLevel, message: `{"level":"error"`},
		{name: "json_array", line: `[1,2]`, level: InfoLevel, message: `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := ParseLine(StdoutStream, tt.line)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)
			assert.Equal(t, tt.structured, entry.Structured)
			assert.Equal(t, tt.line, entry.Raw)
		})
	}
}

func TestParseLineKeepsExtraFields(t *testing.T) {
	entry := ParseLine(StdoutStream, `{"level":"info","ts":1.5,"msg":"started","port":5050,"caller":"main.go:10"}`)

	assert.Equal(t, map[string]interface{}{"port": float64(5050), "caller": "main.go:10"}, entry.Fields)
}

func TestParseLineStderrIsVerbatimError(t *testing.T) {
	line := `{"level":"info","msg":"looks structured"}`
	entry := ParseLine(StderrStream, line)

	assert.Equal(t, ErrorLevel, entry.Level)
	assert.Equal(t, line, entry.Message)
	assert.False(t, entry.Structured)
	assert.Nil(t, entry.Fields)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, WarnLevel, LevelFromString("warning"))
	assert.Equal(t, ErrorLevel, LevelFromString("panic"))
	assert.Equal(t, InfoLevel, LevelFromString(""))
	assert.Equal(t, DebugLevel, LevelFromString(" Debug "))
}
