// Package logging configures the process logger.
//
// Library packages log through *slog.Logger. The CLI builds that logger
// with New, which routes records into a logrus logger carrying the
// configured level and formatter.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})
}

// SetLevel sets the logging level
func SetLevel(level string) {
	Logger.SetLevel(parseLevel(level))
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetFormatter sets the logging formatter
func SetFormatter(format string) {
	Logger.SetFormatter(formatter(format))
}

func formatter(format string) logrus.Formatter {
	switch format {
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	default:
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		}
	}
}

// Config selects the level, format and destination of a logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// New returns an slog.Logger backed by a fresh logrus logger.
func New(cfg Config) *slog.Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(cfg.Level))
	l.SetFormatter(formatter(cfg.Format))
	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	}
	return slog.New(NewHandler(l))
}

// Default returns an slog.Logger backed by the package Logger.
func Default() *slog.Logger {
	return slog.New(NewHandler(Logger))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
