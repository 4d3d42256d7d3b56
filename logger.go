package feedkit

import (
	"fmt"
	"log"
)

// Logger is the printf-style logging interface used by every feedkit service.
// The server binary adapts apex/log to it; StdLogger covers the standard
// library logger and NoopLogger silences output.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// Info logs a message without formatting.
	Info(message string)
}

// NoopLogger discards everything. Services default to it.
type NoopLogger struct{}

func (l *NoopLogger) Debugf(_ string, _ ...interface{}) {}
func (l *NoopLogger) Infof(_ string, _ ...interface{})  {}
func (l *NoopLogger) Warnf(_ string, _ ...interface{})  {}
func (l *NoopLogger) Errorf(_ string, _ ...interface{}) {}
func (l *NoopLogger) Info(_ string)                     {}

// StdLogger writes level-tagged lines to a *log.Logger.
// Debug lines are dropped unless Debug is set.
type StdLogger struct {
	Out   *log.Logger
	Debug bool
}

// NewStdLogger returns a StdLogger writing to out, or to the standard
// logger when out is nil.
func NewStdLogger(out *log.Logger, debug bool) *StdLogger {
	if out == nil {
		out = log.Default()
	}
	return &StdLogger{Out: out, Debug: debug}
}

func (l *StdLogger) Debugf(format string, args ...interface{}) {
	if l.Debug {
		l.print("DEBUG", format, args...)
	}
}

func (l *StdLogger) Infof(format string, args ...interface{})  { l.print("INFO", format, args...) }
func (l *StdLogger) Warnf(format string, args ...interface{})  { l.print("WARN", format, args...) }
func (l *StdLogger) Errorf(format string, args ...interface{}) { l.print("ERROR", format, args...) }
func (l *StdLogger) Info(message string)                       { l.print("INFO", "%s", message) }

func (l *StdLogger) print(level, format string, args ...interface{}) {
	l.Out.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}
