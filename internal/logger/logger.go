package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// log is the shared logrus instance behind the package-level helpers.
var log = newLogrus("info", "text")

func newLogrus(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	}
	return l
}

// Configure replaces the level and format of the package logger.
// Called once from main after config is loaded.
func Configure(level, format string) {
	log = newLogrus(level, format)
}

// Debug logs a debug message under a component tag.
func Debug(tag, msg string) {
	log.WithField("component", tag).Debug(msg)
}

// Info logs an informational message under a component tag.
func Info(tag, msg string) {
	log.WithField("component", tag).Info(msg)
}

// Success logs a completed step. Same level as Info, flagged so the
// text output is easy to scan.
func Success(tag, msg string) {
	log.WithFields(logrus.Fields{"component": tag, "ok": true}).Info(msg)
}

// Warn logs a recoverable problem under a component tag.
func Warn(tag, msg string) {
	log.WithField("component", tag).Warn(msg)
}

// Error logs a failure under a component tag.
func Error(tag, msg string) {
	log.WithField("component", tag).Error(msg)
}
