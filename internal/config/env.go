package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables applied by ApplyEnv.
const (
	EnvLogLevel = "PYPROJ_LOG_LEVEL"
	EnvLogFile  = "PYPROJ_LOG_FILE"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment overrides. PYPROJ_LOG_LEVEL replaces the
// default level and the application logger's level; PYPROJ_LOG_FILE
// replaces the destination of every rotating file handler. A nil lookup
// reads the process environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if value, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(value) != "" {
		level := normalizeLevel(value)
		if !ValidLevel(level) {
			return fmt.Errorf("%s: invalid level %q", EnvLogLevel, value)
		}
		c.DefaultLevel = level
		if name, lg, ok := c.RootLogger(); ok {
			lg.Level = level
			c.Loggers[name] = lg
		}
	}

	if value, ok := lookup(EnvLogFile); ok && strings.TrimSpace(value) != "" {
		path, err := expandPath(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogFile, err)
		}
		for name, h := range c.Handlers {
			if h.Type == HandlerRotatingFile {
				h.Filename = path
				c.Handlers[name] = h
			}
		}
	}
	return nil
}
