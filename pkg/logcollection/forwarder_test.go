package logcollection

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (r *recordingSink) Emit(entry LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Message
	}
	return out
}

const sample = "first line\n{\"level\":\"warn\",\"msg\":\"careful\"}\n{\"level\":\"debug\",\"msg\":\"hidden\"}\r\n\nlast without newline"

func TestForwardSplitAnywhereMatchesUnsplit(t *testing.T) {
	whole := &recordingSink{}
	NewForwarder(whole).Forward(strings.NewReader(sample), StdoutStream)
	require.Equal(t, []string{"first line", "careful", "last without newline"}, whole.messages())

	for offset := 1; offset < len(sample); offset++ {
		split := &recordingSink{}
		w := NewForwarder(split).StreamWriter(StdoutStream)
		_, _ = w.Write([]byte(sample[:offset]))
		_, _ = w.Write([]byte(sample[offset:]))
		require.NoError(t, w.Close())
		assert.Equal(t, whole.messages(), split.messages(), "split at offset %d", offset)
	}
}

func TestForwardOneByteReads(t *testing.T) {
	sink := &recordingSink{}
	NewForwarder(sink).Forward(iotest.OneByteReader(strings.NewReader(sample)), StdoutStream)

	assert.Equal(t, []string{"first line", "careful", "last without newline"}, sink.messages())
}

func TestForwardStopsOnReadError(t *testing.T) {
	sink := &recordingSink{}
	r := io.MultiReader(strings.NewReader("complete\npartial line"), iotest.ErrReader(errors.New("pipe closed")))
	NewForwarder(sink).Forward(r, StderrStream)

	require.Len(t, sink.entries, 2)
	assert.Equal(t, ErrorLevel, sink.entries[1].Level)
	assert.Equal(t, "partial line", sink.entries[1].Message)
}

func TestForwardObserverSeesSuppressedLines(t *testing.T) {
	sink := &recordingSink{}
	counts := map[LogLevel]int{}
	f := NewForwarder(sink, WithLineObserver(func(stream StreamType, level LogLevel) {
		assert.Equal(t, StdoutStream, stream)
		counts[level]++
	}))
	f.Forward(strings.NewReader(sample), StdoutStream)

	assert.Equal(t, map[LogLevel]int{InfoLevel: 2, WarnLevel: 1, DebugLevel: 1}, counts)
	assert.Len(t, sink.entries, 3)
}

func TestStderrLinesAreErrors(t *testing.T) {
	sink := &recordingSink{}
	NewForwarder(sink).Forward(strings.NewReader("panic: oops\n{\"level\":\"debug\"}\n"), StderrStream)

	require.Len(t, sink.entries, 2)
	for _, e := range sink.entries {
		assert.Equal(t, ErrorLevel, e.Level)
		assert.Equal(t, StderrStream, e.Stream)
	}
	assert.Equal(t, `{"level":"debug"}`, sink.entries[1].Message)
}

func TestLongLineIsEmittedWhenCarryOverflows(t *testing.T) {
	sink := &recordingSink{}
	w := NewForwarder(sink).StreamWriter(StdoutStream)
	_, _ = w.Write([]byte(strings.Repeat("a", maxCarryBytes)))
	require.Len(t, sink.entries, 1)
	assert.Len(t, sink.entries[0].Message, maxCarryBytes)
	require.NoError(t, w.Close())
	assert.Len(t, sink.entries, 1)
}
