package logcollection

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink re-emits child output through a zap logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink names the logger "gateway" and tags every entry with the
// instance id.
func NewZapSink(logger *zap.Logger, instanceID string) *ZapSink {
	return &ZapSink{
		logger: logger.Named("gateway").With(zap.String("instance", instanceID)),
	}
}

// Emit logs entry at its classified level. The forwarder drops debug
// entries before they reach a sink.
func (z *ZapSink) Emit(entry LogEntry) {
	fields := make([]zap.Field, 0, len(entry.Fields)+1)
	fields = append(fields, zap.String("stream", string(entry.Stream)))
	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, entry.Fields[k]))
		}
	}
	z.logAtLevel(entry.Level, entry.Message, fields...)
}

func (z *ZapSink) logAtLevel(level LogLevel, msg string, fields ...zap.Field) {
	switch level {
	case WarnLevel:
		z.logger.Warn(msg, fields...)
	case ErrorLevel:
		z.logger.Error(msg, fields...)
	default:
		z.logger.Info(msg, fields...)
	}
}

// ZapConfig defines Zap-specific configuration
type ZapConfig struct {
	Level      string `yaml:"level"`      // "debug", "info", "warn", "error"
	Format     string `yaml:"format"`     // "json", "console"
	Output     string `yaml:"output"`     // "stdout", "stderr", file path
	Caller     bool   `yaml:"caller"`     // Include caller information
	Stacktrace bool   `yaml:"stacktrace"` // Include stacktrace on errors
}

// NewZapLogger creates a zap logger from configuration. The returned
// cleanup closes a file output, if any.
func NewZapLogger(config ZapConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cleanup := func() {}
	var writeSyncer zapcore.WriteSyncer
	switch config.Output {
	case "stdout", "":
		writeSyncer = zapcore.Lock(os.Stdout)
	case "stderr":
		writeSyncer = zapcore.Lock(os.Stderr)
	default:
		ws, closeFn, err := zap.Open(config.Output)
		if err != nil {
			return nil, nil, err
		}
		writeSyncer, cleanup = ws, closeFn
	}

	opts := []zap.Option{}
	if config.Caller {
		opts = append(opts, zap.AddCaller())
	}
	if config.Stacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(encoder, writeSyncer, level), opts...), cleanup, nil
}

// DefaultZapConfig returns a sensible default Zap configuration
func DefaultZapConfig() ZapConfig {
	return ZapConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		Caller:     false,
		Stacktrace: false,
	}
}
