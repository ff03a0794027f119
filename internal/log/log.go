// Package log provides the poller's leveled logger, backed by zap.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Default writes console-formatted entries to stderr, leaving stdout to
// records and summaries.
var Default Logger = newSugared(zapcore.AddSync(os.Stderr), zapLevel)

// Logger is the logging interface used across the poller. Methods ending
// in w take alternating key/value pairs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

func newSugared(ws zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.SugaredLogger {
	return zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), ws, level),
		zap.AddCaller(),
	).Sugar()
}

// New returns a logger writing to w at its own level. An unknown level
// falls back to info.
func New(w io.Writer, level string) Logger {
	return newSugared(zapcore.AddSync(w), zap.NewAtomicLevelAt(parseLevel(level)))
}

// SetLevel sets the level of Default.
// Valid levels are: "debug", "info", "warn", "error"
func SetLevel(level string) {
	zapLevel.SetLevel(parseLevel(level))
}

// ValidLevel reports whether level is one of the level constants.
func ValidLevel(level string) bool {
	switch level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes Default. Errors from syncing a terminal are ignored.
func Sync() {
	if s, ok := Default.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
