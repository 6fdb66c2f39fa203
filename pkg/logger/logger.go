// pkg/logger/logger.go
// Structured logging with Zap

package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log   *zap.Logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	mu    sync.RWMutex
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	File   string // log file path (empty = stderr)
}

// Init initializes the global logger. Calling it again replaces the
// previous logger.
func Init(cfg Config) error {
	l, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
	log = l
	return nil
}

func build(cfg Config) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	level.SetLevel(lvl)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format %q (must be console or json)", cfg.Format)
	}

	// stdout is reserved for the report
	sink := zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		//nolint:gosec // G302: 0644 is standard for log files
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

// L returns the global logger, or a no-op logger before Init
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Enabled reports whether messages at lvl would be written
func Enabled(lvl zapcore.Level) bool {
	return level.Enabled(lvl)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if log != nil {
		return log.Sync()
	}
	return nil
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return L().WithOptions(zap.AddCallerSkip(-1)).With(fields...)
}

// Named creates a child logger with a new name
func Named(name string) *zap.Logger {
	return L().WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

// Field shortcuts
var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Int64    = zap.Int64
	Bool     = zap.Bool
	Err      = zap.Error // Use Err instead of Error to avoid conflict
	Float64  = zap.Float64
	Any      = zap.Any
	Time     = zap.Time
	Duration = zap.Duration
)
