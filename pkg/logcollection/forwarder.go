package logcollection

import (
	"bytes"
	"io"
	"strings"
)

const (
	readChunkSize = 32 * 1024
	// maxCarryBytes bounds a partial line; anything longer is emitted as is.
	maxCarryBytes = 1024 * 1024
)

// Forwarder reassembles child output into lines and hands classified
// entries to a sink.
type Forwarder struct {
	sink     Sink
	observer LineObserver
}

type ForwarderOption func(*Forwarder)

// WithLineObserver registers a callback invoked for every classified line.
func WithLineObserver(o LineObserver) ForwarderOption {
	return func(f *Forwarder) { f.observer = o }
}

func NewForwarder(sink Sink, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{sink: sink}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward drains r until EOF or a read error, then flushes the trailing
// partial line. Read errors end the stream silently.
func (f *Forwarder) Forward(r io.Reader, stream StreamType) {
	w := f.StreamWriter(stream)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			w.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	w.Close()
}

// StreamWriter returns an io.WriteCloser that carries partial lines between
// writes. Close flushes the remainder.
func (f *Forwarder) StreamWriter(stream StreamType) io.WriteCloser {
	return &lineWriter{stream: stream, forwarder: f}
}

func (f *Forwarder) handleLine(stream StreamType, line string) {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	entry := ParseLine(stream, line)
	if f.observer != nil {
		f.observer(stream, entry.Level)
	}
	if entry.Level == DebugLevel {
		return
	}
	f.sink.Emit(entry)
}

type lineWriter struct {
	stream    StreamType
	forwarder *Forwarder
	carry     []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.carry = append(w.carry, p...)
			if len(w.carry) >= maxCarryBytes {
				w.flush()
			}
			break
		}
		if len(w.carry) > 0 {
			w.carry = append(w.carry, p[:i]...)
			w.flush()
		} else {
			w.forwarder.handleLine(w.stream, string(p[:i]))
		}
		p = p[i+1:]
	}
	return n, nil
}

func (w *lineWriter) flush() {
	line := string(w.carry)
	w.carry = w.carry[:0]
	w.forwarder.handleLine(w.stream, line)
}

func (w *lineWriter) Close() error {
	if len(w.carry) > 0 {
		w.flush()
	}
	return nil
}
