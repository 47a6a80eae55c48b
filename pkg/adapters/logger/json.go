package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/user/vidloop/pkg/ports"
)

// JSONLogger writes one JSON object per line through zerolog.
// Messages are formatted but not translated, so log collectors see stable text.
type JSONLogger struct {
	zl zerolog.Logger
}

// NewJSON creates a JSON logger writing to stderr.
func NewJSON(level ports.LogLevel) *JSONLogger {
	return NewJSONWriter(level, os.Stderr)
}

// NewJSONWriter creates a JSON logger writing to w.
func NewJSONWriter(level ports.LogLevel, w io.Writer) *JSONLogger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zl := zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger()
	return &JSONLogger{zl: zl}
}

func zerologLevel(level ports.LogLevel) zerolog.Level {
	switch level {
	case ports.LevelDebug:
		return zerolog.DebugLevel
	case ports.LevelInfo:
		return zerolog.InfoLevel
	case ports.LevelWarn:
		return zerolog.WarnLevel
	case ports.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

func (l *JSONLogger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(format(msg, args))
}

func (l *JSONLogger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(format(msg, args))
}

func (l *JSONLogger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(format(msg, args))
}

func (l *JSONLogger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(format(msg, args))
}

// WithComponent returns a logger that adds a "component" field.
func (l *JSONLogger) WithComponent(component string) ports.Logger {
	return &JSONLogger{zl: l.zl.With().Str("component", component).Logger()}
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var _ ports.Logger = (*JSONLogger)(nil)
