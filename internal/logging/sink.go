package logging

import (
	"fmt"
	"io"
	"sync"
)

// Sink is a configured destination: records at or above Threshold that pass
// Filter are rendered by Renderer and written to the destination.
type Sink struct {
	Name      string
	Threshold Level
	Filter    Filter
	Renderer  Renderer

	mu   sync.Mutex
	dest io.WriteCloser
}

// NewSink builds a sink that owns dest. Closing the sink closes dest.
func NewSink(name string, threshold Level, filter Filter, renderer Renderer, dest io.WriteCloser) *Sink {
	return &Sink{
		Name:      name,
		Threshold: threshold,
		Filter:    filter,
		Renderer:  renderer,
		dest:      dest,
	}
}

// Accepts reports whether rec passes the sink's threshold and filter.
func (s *Sink) Accepts(rec *Record) bool {
	if rec.Level < s.Threshold {
		return false
	}
	return s.Filter == nil || s.Filter(rec)
}

// Write renders rec and writes the payload under the sink's lock.
func (s *Sink) Write(rec *Record) error {
	payload, err := s.Renderer.Render(rec)
	if err != nil {
		return fmt.Errorf("sink %s: %w", s.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dest.Write(payload); err != nil {
		return fmt.Errorf("sink %s: write: %w", s.Name, err)
	}
	return nil
}

// Close releases the destination.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dest.Close(); err != nil {
		return fmt.Errorf("sink %s: close: %w", s.Name, err)
	}
	return nil
}
