package logcollection

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Key spellings accepted for severity and message. The second set is what
// zap emits with short keys.
var (
	levelKeys   = []string{"level", "L"}
	messageKeys = []string{"msg", "M", "message"}
	timeKeys    = []string{"ts", "T", "time", "timestamp"}
)

// ParseLine classifies a single line. Stderr lines are always errors and
// never parsed. Stdout lines that are not JSON objects pass through as
// info with the raw text as message.
func ParseLine(stream StreamType, line string) LogEntry {
	entry := LogEntry{Stream: stream, Level: InfoLevel, Message: line, Raw: line}

	if stream == StderrStream {
		entry.Level = ErrorLevel
		return entry
	}

	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entry
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &record); err != nil || record == nil {
		return entry
	}

	entry.Structured = true
	if v, key, ok := lookup(record, levelKeys); ok {
		entry.Level = LevelFromString(fmt.Sprint(v))
		delete(record, key)
	}
	if v, key, ok := lookup(record, messageKeys); ok {
		entry.Message = fmt.Sprint(v)
		delete(record, key)
	}
	for _, k := range timeKeys {
		delete(record, k)
	}
	if len(record) > 0 {
		entry.Fields = record
	}
	return entry
}

// LevelFromString maps a child's severity name onto the forwarding levels.
// Unknown names are info.
func LevelFromString(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fatal", "dpanic", "panic":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "debug":
		return DebugLevel
	default:
		return InfoLevel
	}
}

func lookup(record map[string]interface{}, keys []string) (interface{}, string, bool) {
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil {
			return v, k, true
		}
	}
	return nil, "", false
}
