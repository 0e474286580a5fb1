package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed sample_config.toml
var sampleConfig string

// Queue configures the dispatch queue between producers and the listener.
type Queue struct {
	Capacity int `toml:"capacity"`
}

// Formatter selects and tunes a renderer.
type Formatter struct {
	Type       string `toml:"type"`        // color | json
	Color      string `toml:"color"`       // auto | always | never (color only)
	ShowFields bool   `toml:"show_fields"` // append extra fields as key=value (color only)
	Collision  string `toml:"collision"`   // rename | drop (json only)
	SessionID  bool   `toml:"session_id"`  // stamp the pipeline session id (json only)
}

// Filter restricts which records a handler accepts. All set conditions
// must hold.
type Filter struct {
	AcceptNamePrefix string `toml:"accept_name_prefix"`
	MaxLevel         string `toml:"max_level"`
}

// Handler describes a sink.
type Handler struct {
	Type      string   `toml:"type"` // stream | rotating_file
	Stream    string   `toml:"stream"`
	Level     string   `toml:"level"`
	Formatter string   `toml:"formatter"`
	Filters   []string `toml:"filters"`

	// rotating_file only
	Filename    string `toml:"filename"`
	MaxBytes    int64  `toml:"max_bytes"`
	BackupCount int    `toml:"backup_count"`
	Rotation    string `toml:"rotation"` // numbered | timestamped
	MaxAgeDays  int    `toml:"max_age_days"`
	Compress    bool   `toml:"compress"`
}

// Logger configures a named logger. Only the application root logger
// lists handlers.
type Logger struct {
	Level     string   `toml:"level"`
	Propagate *bool    `toml:"propagate"`
	Handlers  []string `toml:"handlers"`
}

// PropagateEnabled reports the propagate flag, which defaults to true.
func (l Logger) PropagateEnabled() bool {
	return l.Propagate == nil || *l.Propagate
}

// Config is the declarative logging configuration.
//
// Sections:
//   - DefaultLevel: threshold for loggers without an explicit level
//   - Queue: dispatch queue capacity
//   - Formatters, Filters, Handlers: named building blocks for sinks
//   - Loggers: per-logger level and propagation; exactly one logger owns
//     handlers and becomes the application root
//
// A "root" section is rejected: leaving the process root unconfigured keeps
// library loggers out of the pipeline.
type Config struct {
	DefaultLevel string               `toml:"default_level"`
	Queue        Queue                `toml:"queue"`
	Formatters   map[string]Formatter `toml:"formatters"`
	Filters      map[string]Filter    `toml:"filters"`
	Handlers     map[string]Handler   `toml:"handlers"`
	Loggers      map[string]Logger    `toml:"loggers"`
	Root         *Logger              `toml:"root"`
}

// RootLogger returns the name and settings of the logger that owns
// handlers.
func (c *Config) RootLogger() (string, Logger, bool) {
	for _, name := range sortedKeys(c.Loggers) {
		if lg := c.Loggers[name]; len(lg.Handlers) > 0 {
			return name, lg, true
		}
	}
	return "", Logger{}, false
}

// Clone returns a deep copy so overrides never touch the caller's value.
func (c *Config) Clone() *Config {
	out := *c
	out.Formatters = cloneMap(c.Formatters, func(f Formatter) Formatter { return f })
	out.Filters = cloneMap(c.Filters, func(f Filter) Filter { return f })
	out.Handlers = cloneMap(c.Handlers, func(h Handler) Handler {
		h.Filters = append([]string(nil), h.Filters...)
		return h
	})
	out.Loggers = cloneMap(c.Loggers, cloneLogger)
	if c.Root != nil {
		root := cloneLogger(*c.Root)
		out.Root = &root
	}
	return &out
}

func cloneLogger(l Logger) Logger {
	if l.Propagate != nil {
		p := *l.Propagate
		l.Propagate = &p
	}
	l.Handlers = append([]string(nil), l.Handlers...)
	return l
}

func cloneMap[V any](in map[string]V, clone func(V) V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultConfigPath returns the absolute path to the per-user configuration
// file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultUserConfigPath)
}

// Load locates, parses, and validates a configuration file. When no file
// exists the embedded sample configuration is used. The returned config has
// all paths expanded and names normalized.
func Load(path string) (*Config, string, bool, error) {
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	data := []byte(sampleConfig)
	format := FormatTOML
	if exists {
		if format, err = detectFormat(resolvedPath); err != nil {
			return nil, "", false, err
		}
		if data, err = os.ReadFile(resolvedPath); err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := LoadBytes(data, format)
	if err != nil {
		return nil, "", false, err
	}
	return cfg, resolvedPath, exists, nil
}

// LoadBytes parses, normalizes, and validates an in-memory configuration.
func LoadBytes(data []byte, format Format) (*Config, error) {
	cfg := Default()
	if err := decode(data, format, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	defaultPath, err := expandPath(defaultUserConfigPath)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// FileHandlers returns the rotating file handlers sorted by name.
func (c *Config) FileHandlers() []Handler {
	var out []Handler
	for _, name := range sortedKeys(c.Handlers) {
		if h := c.Handlers[name]; h.Type == HandlerRotatingFile {
			out = append(out, h)
		}
	}
	return out
}
