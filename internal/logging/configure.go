package logging

import (
	"fmt"
	"io"
	"math"

	"pyproj/internal/config"
)

// levelNotSet is the threshold of a handler without a level: it accepts
// every record, including bridged slog levels below DEBUG.
const levelNotSet Level = math.MinInt32

// sinkBuilder turns handler configuration into sinks.
type sinkBuilder struct {
	cfg       *config.Config
	streams   Streams
	sessionID string
	metrics   *pipelineMetrics
}

// build constructs the named handlers in order. On failure every sink
// already opened is closed again.
func (b sinkBuilder) build(names []string) ([]*Sink, error) {
	sinks := make([]*Sink, 0, len(names))
	for _, name := range names {
		sink, err := b.buildSink(name, b.cfg.Handlers[name])
		if err != nil {
			closeAll(sinks)
			return nil, fmt.Errorf("handlers.%s: %w", name, err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func (b sinkBuilder) buildSink(name string, h config.Handler) (*Sink, error) {
	threshold := levelNotSet
	if h.Level != "" {
		level, err := ParseLevel(h.Level)
		if err != nil {
			return nil, err
		}
		threshold = level
	}
	filter, err := b.filter(h.Filters)
	if err != nil {
		return nil, err
	}

	var (
		dest     io.WriteCloser
		terminal io.Writer
	)
	switch h.Type {
	case config.HandlerStream:
		w, err := b.streams.lookup(h.Stream)
		if err != nil {
			return nil, err
		}
		dest = NopCloser(w)
		terminal = w
	case config.HandlerRotatingFile:
		if dest, err = b.openFile(name, h); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown handler type %q", h.Type)
	}

	renderer, err := b.renderer(h, terminal)
	if err != nil {
		_ = dest.Close()
		return nil, err
	}
	return NewSink(name, threshold, filter, renderer, dest), nil
}

func (b sinkBuilder) openFile(name string, h config.Handler) (Rotator, error) {
	if h.Rotation == config.RotationTimestamped {
		return OpenTimestampedFile(h.Filename, h.MaxBytes, h.BackupCount, h.MaxAgeDays, h.Compress)
	}
	return OpenRotatingFile(h.Filename, h.MaxBytes, h.BackupCount, func() {
		b.metrics.recordRotation(name)
	})
}

func (b sinkBuilder) filter(names []string) (Filter, error) {
	var filters []Filter
	for _, name := range names {
		f := b.cfg.Filters[name]
		if f.AcceptNamePrefix != "" {
			filters = append(filters, NamespaceFilter(f.AcceptNamePrefix))
		}
		if f.MaxLevel != "" {
			level, err := ParseLevel(f.MaxLevel)
			if err != nil {
				return nil, fmt.Errorf("filter %s: %w", name, err)
			}
			filters = append(filters, MaxLevelFilter(level))
		}
	}
	return ChainFilters(filters...), nil
}

// renderer resolves the handler's formatter. Streams default to color text
// and files to JSON. terminal is the stream checked for color support, nil
// for files.
func (b sinkBuilder) renderer(h config.Handler, terminal io.Writer) (Renderer, error) {
	f, ok := b.cfg.Formatters[h.Formatter]
	if !ok {
		f = config.Formatter{Type: config.FormatterColor}
		if h.Type == config.HandlerRotatingFile {
			f.Type = config.FormatterJSON
		}
	}

	switch f.Type {
	case config.FormatterColor:
		mode, err := ParseColorMode(f.Color)
		if err != nil {
			return nil, err
		}
		colorize := mode == ColorAlways
		if terminal != nil {
			colorize = mode.Enabled(terminal)
		}
		return NewColorRenderer(colorize, f.ShowFields), nil
	case config.FormatterJSON:
		policy, err := ParseCollisionPolicy(f.Collision)
		if err != nil {
			return nil, err
		}
		r := &JSONRenderer{Collision: policy}
		if f.SessionID {
			r.SessionID = b.sessionID
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown formatter type %q", f.Type)
	}
}
