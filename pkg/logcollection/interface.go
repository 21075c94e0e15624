package logcollection

// LogLevel represents logging levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// StreamType identifies the source stream
type StreamType string

const (
	StdoutStream StreamType = "stdout"
	StderrStream StreamType = "stderr"
)

// LogEntry is one classified line of child output.
type LogEntry struct {
	Stream  StreamType
	Level   LogLevel
	Message string
	// Raw is the line exactly as read, minus the line terminator.
	Raw string
	// Structured is set when the line parsed as a JSON record.
	Structured bool
	// Fields holds the remaining keys of a structured record.
	Fields map[string]interface{}
}

// Sink receives entries that survive classification. Debug entries never
// reach a sink.
type Sink interface {
	Emit(entry LogEntry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entry LogEntry)

func (f SinkFunc) Emit(entry LogEntry) { f(entry) }

// LineObserver is told about every classified line, including suppressed ones.
type LineObserver func(stream StreamType, level LogLevel)
