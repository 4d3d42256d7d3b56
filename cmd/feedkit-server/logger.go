package main

import (
	"github.com/apex/log"
)

// apexLogger adapts an apex/log entry to feedkit.Logger.
type apexLogger struct {
	entry *log.Entry
}

func newApexLogger(component string) *apexLogger {
	return &apexLogger{entry: log.WithFields(log.Fields{
		"module":    "feedkit",
		"component": component,
	})}
}

func (l *apexLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *apexLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *apexLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *apexLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *apexLogger) Info(message string)                       { l.entry.Info(message) }
