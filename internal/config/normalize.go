package config

import (
	"fmt"
	"strings"
)

// Normalize canonicalizes names and levels, fills the per-type defaults
// left empty (color, collision, stream, rotation), and expands file paths.
// It is safe to call more than once.
func (c *Config) Normalize() error {
	c.DefaultLevel = normalizeLevel(c.DefaultLevel)
	if c.DefaultLevel == "" {
		c.DefaultLevel = defaultLevel
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = defaultQueueCapacity
	}
	c.normalizeFormatters()
	c.normalizeFilters()
	if err := c.normalizeHandlers(); err != nil {
		return err
	}
	c.normalizeLoggers()
	return nil
}

func normalizeLevel(level string) string {
	return strings.ToUpper(strings.TrimSpace(level))
}

func normalizeName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func (c *Config) normalizeFormatters() {
	for name, f := range c.Formatters {
		f.Type = normalizeName(f.Type)
		f.Color = normalizeName(f.Color)
		if f.Color == "" {
			f.Color = defaultColorMode
		}
		f.Collision = normalizeName(f.Collision)
		if f.Collision == "" {
			f.Collision = defaultCollision
		}
		c.Formatters[name] = f
	}
}

func (c *Config) normalizeFilters() {
	for name, f := range c.Filters {
		f.AcceptNamePrefix = strings.TrimSpace(f.AcceptNamePrefix)
		f.MaxLevel = normalizeLevel(f.MaxLevel)
		c.Filters[name] = f
	}
}

func (c *Config) normalizeHandlers() error {
	for name, h := range c.Handlers {
		h.Type = normalizeName(h.Type)
		h.Level = normalizeLevel(h.Level)
		h.Formatter = strings.TrimSpace(h.Formatter)
		switch h.Type {
		case HandlerStream:
			h.Stream = normalizeName(h.Stream)
			if h.Stream == "" {
				h.Stream = defaultStream
			}
		case HandlerRotatingFile:
			h.Rotation = normalizeName(h.Rotation)
			if h.Rotation == "" {
				h.Rotation = RotationNumbered
			}
			if strings.TrimSpace(h.Filename) != "" {
				expanded, err := expandPath(strings.TrimSpace(h.Filename))
				if err != nil {
					return fmt.Errorf("handlers.%s.filename: %w", name, err)
				}
				h.Filename = expanded
			}
		}
		c.Handlers[name] = h
	}
	return nil
}

func (c *Config) normalizeLoggers() {
	for name, lg := range c.Loggers {
		lg.Level = normalizeLevel(lg.Level)
		c.Loggers[name] = lg
	}
	if c.Root != nil {
		c.Root.Level = normalizeLevel(c.Root.Level)
	}
}
