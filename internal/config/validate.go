package config

import (
	"errors"
	"fmt"
	"strings"
)

var levelNames = map[string]struct{}{
	"DEBUG":    {},
	"INFO":     {},
	"WARNING":  {},
	"WARN":     {},
	"ERROR":    {},
	"CRITICAL": {},
	"FATAL":    {},
}

// ValidLevel reports whether name is a recognized severity name.
func ValidLevel(name string) bool {
	_, ok := levelNames[normalizeLevel(name)]
	return ok
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Root != nil {
		return errors.New("root: configuring the root logger is not permitted; configure the application logger by name under [loggers]")
	}
	if !ValidLevel(c.DefaultLevel) {
		return fmt.Errorf("default_level: invalid level %q", c.DefaultLevel)
	}
	if c.Queue.Capacity < 0 {
		return errors.New("queue.capacity must be positive")
	}
	if err := c.validateFormatters(); err != nil {
		return err
	}
	if err := c.validateFilters(); err != nil {
		return err
	}
	if err := c.validateHandlers(); err != nil {
		return err
	}
	return c.validateLoggers()
}

func (c *Config) validateFormatters() error {
	for _, name := range sortedKeys(c.Formatters) {
		f := c.Formatters[name]
		switch f.Type {
		case FormatterColor, FormatterJSON:
		default:
			return fmt.Errorf("formatters.%s.type: unknown formatter type %q", name, f.Type)
		}
		switch f.Color {
		case "auto", "always", "never":
		default:
			return fmt.Errorf("formatters.%s.color must be auto, always, or never", name)
		}
		switch f.Collision {
		case "rename", "drop":
		default:
			return fmt.Errorf("formatters.%s.collision must be rename or drop", name)
		}
	}
	return nil
}

func (c *Config) validateFilters() error {
	for _, name := range sortedKeys(c.Filters) {
		f := c.Filters[name]
		if f.MaxLevel != "" && !ValidLevel(f.MaxLevel) {
			return fmt.Errorf("filters.%s.max_level: invalid level %q", name, f.MaxLevel)
		}
		if strings.HasSuffix(f.AcceptNamePrefix, ".") {
			return fmt.Errorf("filters.%s.accept_name_prefix must be a logger name, not end with '.'", name)
		}
	}
	return nil
}

func (c *Config) validateHandlers() error {
	for _, name := range sortedKeys(c.Handlers) {
		h := c.Handlers[name]
		prefix := "handlers." + name
		if h.Level != "" && !ValidLevel(h.Level) {
			return fmt.Errorf("%s.level: invalid level %q", prefix, h.Level)
		}
		if h.Formatter != "" {
			if _, ok := c.Formatters[h.Formatter]; !ok {
				return fmt.Errorf("%s.formatter: unknown formatter %q", prefix, h.Formatter)
			}
		}
		for _, filter := range h.Filters {
			if _, ok := c.Filters[filter]; !ok {
				return fmt.Errorf("%s.filters: unknown filter %q", prefix, filter)
			}
		}
		switch h.Type {
		case HandlerStream:
			if h.Stream != "stdout" && h.Stream != "stderr" {
				return fmt.Errorf("%s.stream must be stdout or stderr", prefix)
			}
		case HandlerRotatingFile:
			if err := validateFileHandler(prefix, h); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s.type: unknown handler type %q", prefix, h.Type)
		}
	}
	return nil
}

func validateFileHandler(prefix string, h Handler) error {
	if strings.TrimSpace(h.Filename) == "" {
		return fmt.Errorf("%s.filename must be set for rotating_file handlers", prefix)
	}
	if h.MaxBytes < 0 {
		return fmt.Errorf("%s.max_bytes must be zero or positive", prefix)
	}
	if h.BackupCount < 0 {
		return fmt.Errorf("%s.backup_count must be zero or positive", prefix)
	}
	if h.MaxAgeDays < 0 {
		return fmt.Errorf("%s.max_age_days must be zero or positive", prefix)
	}
	switch h.Rotation {
	case RotationNumbered, RotationTimestamped:
	default:
		return fmt.Errorf("%s.rotation must be numbered or timestamped", prefix)
	}
	return nil
}

func (c *Config) validateLoggers() error {
	var owners []string
	for _, name := range sortedKeys(c.Loggers) {
		lg := c.Loggers[name]
		if strings.TrimSpace(name) == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
			return fmt.Errorf("loggers: invalid logger name %q", name)
		}
		if strings.EqualFold(name, "root") {
			return errors.New("loggers.root: configuring the root logger is not permitted")
		}
		if lg.Level != "" && !ValidLevel(lg.Level) {
			return fmt.Errorf("loggers.%s.level: invalid level %q", name, lg.Level)
		}
		for _, handler := range lg.Handlers {
			if _, ok := c.Handlers[handler]; !ok {
				return fmt.Errorf("loggers.%s.handlers: unknown handler %q", name, handler)
			}
		}
		if len(lg.Handlers) > 0 {
			owners = append(owners, name)
		}
	}
	if len(owners) > 1 {
		return fmt.Errorf("loggers: only the application logger may own handlers, found %s", strings.Join(owners, ", "))
	}
	if len(owners) == 0 && len(c.Handlers) > 0 {
		return errors.New("loggers: handlers are defined but no logger owns them")
	}
	return nil
}
