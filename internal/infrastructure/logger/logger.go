// Package logger wraps zerolog behind the small, leveled, key-value
// API the rest of the control plane depends on, so business packages
// never import zerolog directly.
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a leveled, structured logger. The zero value is not
// usable; construct with New.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing JSON to stdout at the given level
// ("debug", "info", "warn", "error"; unknown values fall back to
// "info").
func New(level string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zl := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(parseLevel(level))
	return &Logger{zl: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger carrying an additional fixed field,
// e.g. log.With("device_id", id).
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug(msg string, kv ...any) { l.log(l.zl.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(l.zl.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(l.zl.Warn(), msg, kv) }
func (l *Logger) Error(msg string, kv ...any) { l.log(l.zl.Error(), msg, kv) }

func (l *Logger) log(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

// Nop returns a logger that discards everything; useful for tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
