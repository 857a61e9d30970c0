package utils

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger provides leveled, printf-style logging throughout the application.
// It is a thin layer over hclog so components can be named and the same
// sink can be shared with cron and the CLI.
type Logger struct {
	hc hclog.Logger
}

// NewLogger creates a Logger writing to stderr at the given level
// ("trace", "debug", "info", "warn", "error"). Unknown levels mean info.
func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a Logger writing to w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return &Logger{hc: hclog.New(&hclog.LoggerOptions{
		Name:   "ride-etl",
		Level:  lvl,
		Output: w,
	})}
}

// NewNullLogger discards everything. Used by tests.
func NewNullLogger() *Logger {
	return &Logger{hc: hclog.NewNullLogger()}
}

// Named returns a sub-logger whose lines are prefixed with name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{hc: l.hc.Named(name)}
}

// Hclog exposes the underlying structured logger.
func (l *Logger) Hclog() hclog.Logger {
	return l.hc
}

// StandardLogger adapts the logger for libraries that expect *log.Logger.
func (l *Logger) StandardLogger() *log.Logger {
	return l.hc.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}

func (l *Logger) Info(format string, args ...any) {
	l.hc.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.hc.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.hc.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.hc.Debug(fmt.Sprintf(format, args...))
}
