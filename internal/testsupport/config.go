package testsupport

import (
	"path/filepath"
	"testing"

	"pyproj/internal/config"
)

// Handler names used by NewConfig.
const (
	HandlerStdout = "stdout"
	HandlerStderr = "stderr"
	HandlerFile   = "file"

	RootLogger = "app"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces the standard three-sink topology rooted at "app": a
// stdout sink for DEBUG..INFO, a stderr sink for WARNING and above, and a
// JSON rotating file in a per-test temp directory. Colors are disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	propagate := false
	cfg := config.Default()
	cfg.Formatters = map[string]config.Formatter{
		"console": {Type: config.FormatterColor, Color: "never", Collision: "rename"},
		"json":    {Type: config.FormatterJSON},
	}
	cfg.Filters = map[string]config.Filter{
		"app_only":       {AcceptNamePrefix: RootLogger},
		"info_and_below": {MaxLevel: "INFO"},
	}
	cfg.Handlers = map[string]config.Handler{
		HandlerStdout: {
			Type:      config.HandlerStream,
			Stream:    "stdout",
			Level:     "DEBUG",
			Formatter: "console",
			Filters:   []string{"app_only", "info_and_below"},
		},
		HandlerStderr: {
			Type:      config.HandlerStream,
			Stream:    "stderr",
			Level:     "WARNING",
			Formatter: "console",
			Filters:   []string{"app_only"},
		},
		HandlerFile: {
			Type:        config.HandlerRotatingFile,
			Level:       "DEBUG",
			Formatter:   "json",
			Filters:     []string{"app_only"},
			Filename:    filepath.Join(base, "logs", "app.log"),
			MaxBytes:    1 << 20,
			BackupCount: 3,
		},
	}
	cfg.Loggers = map[string]config.Logger{
		RootLogger: {
			Level:     "DEBUG",
			Propagate: &propagate,
			Handlers:  []string{HandlerStdout, HandlerStderr, HandlerFile},
		},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfg,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithHandlerLevel overrides the threshold of a handler.
func WithHandlerLevel(handler, level string) ConfigOption {
	return func(b *configBuilder) {
		h, ok := b.cfg.Handlers[handler]
		if !ok {
			b.t.Fatalf("unknown handler %q", handler)
		}
		h.Level = level
		b.cfg.Handlers[handler] = h
	}
}

// WithLoggerLevel sets the explicit level of a logger, adding it when absent.
func WithLoggerLevel(name, level string) ConfigOption {
	return func(b *configBuilder) {
		lg := b.cfg.Loggers[name]
		lg.Level = level
		b.cfg.Loggers[name] = lg
	}
}

// WithDefaultLevel sets the fallback level.
func WithDefaultLevel(level string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DefaultLevel = level
	}
}

// WithQueueCapacity bounds the dispatch queue.
func WithQueueCapacity(capacity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Capacity = capacity
	}
}

// WithFileRotation sets the size limit and backup count of the file sink.
func WithFileRotation(maxBytes int64, backups int) ConfigOption {
	return func(b *configBuilder) {
		h := b.cfg.Handlers[HandlerFile]
		h.MaxBytes = maxBytes
		h.BackupCount = backups
		b.cfg.Handlers[HandlerFile] = h
	}
}

// WithJSONFormatter replaces the settings of the file formatter.
func WithJSONFormatter(f config.Formatter) ConfigOption {
	return func(b *configBuilder) {
		f.Type = config.FormatterJSON
		b.cfg.Formatters["json"] = f
	}
}

// WithShowFields makes the console formatter print extra fields.
func WithShowFields() ConfigOption {
	return func(b *configBuilder) {
		f := b.cfg.Formatters["console"]
		f.ShowFields = true
		b.cfg.Formatters["console"] = f
	}
}

// LogPath returns the active file of the file sink.
func LogPath(cfg *config.Config) string {
	return cfg.Handlers[HandlerFile].Filename
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(LogPath(cfg)))
}
