package logging

import (
	"context"
	"log/slog"
	"maps"

	"github.com/sirupsen/logrus"
)

// Handler is an slog.Handler that writes records to a logrus logger.
// Attributes become logrus fields; groups become dotted field prefixes.
type Handler struct {
	l      *logrus.Logger
	fields logrus.Fields
	prefix string
}

// NewHandler returns a Handler writing to l.
func NewHandler(l *logrus.Logger) *Handler {
	return &Handler{l: l, fields: logrus.Fields{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.l.IsLevelEnabled(toLogrusLevel(level))
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})
	entry := h.l.WithFields(fields)
	if !r.Time.IsZero() {
		entry = entry.WithTime(r.Time)
	}
	entry.Log(toLogrusLevel(r.Level), r.Message)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := maps.Clone(h.fields)
	for _, a := range attrs {
		addAttr(fields, h.prefix, a)
	}
	return &Handler{l: h.l, fields: fields, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{l: h.l, fields: h.fields, prefix: h.prefix + name + "."}
}

func addAttr(fields logrus.Fields, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			addAttr(fields, sub, ga)
		}
		return
	}
	fields[prefix+a.Key] = a.Value.Any()
}

func toLogrusLevel(level slog.Level) logrus.Level {
	switch {
	case level < slog.LevelInfo:
		return logrus.DebugLevel
	case level < slog.LevelWarn:
		return logrus.InfoLevel
	case level < slog.LevelError:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
