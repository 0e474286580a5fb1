package logging

import (
	"context"
	"log/slog"
	"strings"
)

// slogHandler feeds slog records into a pipeline logger so that code
// written against log/slog shares the same sinks, levels, and origin
// isolation. Attributes become extra fields; groups prefix their keys with
// dots.
type slogHandler struct {
	logger *Logger
	groups []string
	fields Fields
}

// SlogHandler returns a slog.Handler that emits through the logger name.
func (p *Pipeline) SlogHandler(name string) slog.Handler {
	return &slogHandler{logger: p.Logger(name)}
}

// Slog returns a slog.Logger backed by SlogHandler(name).
func (p *Pipeline) Slog(name string) *slog.Logger {
	return slog.New(p.SlogHandler(name))
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.logger.Enabled(levelFromSlog(level))
}

func (h *slogHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make(Fields, len(h.fields)+record.NumAttrs())
	for k, v := range h.fields {
		fields[k] = v
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(fields, h.groups, attr)
		return true
	})
	h.logger.emit(levelFromSlog(record.Level), fields, nil, record.Message, nil)
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(Fields, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		fields[k] = v
	}
	for _, attr := range attrs {
		flattenAttr(fields, h.groups, attr)
	}
	return &slogHandler{logger: h.logger, groups: h.groups, fields: fields}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogHandler{logger: h.logger, groups: appendPrefix(h.groups, name), fields: h.fields}
}

func flattenAttr(dst Fields, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = appendPrefix(prefix, attr.Key)
		}
		for _, child := range attr.Value.Group() {
			flattenAttr(dst, next, child)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		if key != "" {
			key = strings.Join(appendPrefix(prefix, key), ".")
		} else {
			key = strings.Join(prefix, ".")
		}
	}
	dst[key] = attr.Value.Any()
}

func appendPrefix(prefix []string, value string) []string {
	out := make([]string, len(prefix), len(prefix)+1)
	copy(out, prefix)
	return append(out, value)
}
