// Package log wraps charmbracelet/log with package-level helpers so
// every component logs through one configured sink.
package log

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the handle returned by With, for components that want to
// hold onto a scoped logger (a struct field) rather than call the
// package-level helpers.
type Logger = log.Logger

var logger *log.Logger

// Init configures the package logger. appName becomes its prefix;
// level is one of "debug", "info", "warn", "error".
func Init(appName, level string) {
	logger = log.New(os.Stderr)
	logger.SetPrefix(appName)
	logger.SetReportTimestamp(true)
	logger.SetTimeFormat(time.DateTime)
	logger.SetLevel(parseLevel(level))
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// With returns a derived logger carrying the given key/value pairs on
// every line, for per-room or per-connection scoping.
func With(keyvals ...any) *log.Logger {
	if logger == nil {
		Init("minefieldd", "info")
	}
	return logger.With(keyvals...)
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatal(format)
	} else {
		logger.Fatal(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Info(format)
	} else {
		logger.Info(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warn(format)
	} else {
		logger.Warn(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Error(format)
	} else {
		logger.Error(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debug(format)
	} else {
		logger.Debug(format, args...)
	}
}
