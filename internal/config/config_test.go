package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyproj/internal/config"
)

func TestLoadFallsBackToSample(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, path, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected no config file on disk")
	}
	if want := filepath.Join(home, ".config", "pyproj", "logging.toml"); path != want {
		t.Fatalf("expected default path %q, got %q", want, path)
	}

	name, lg, ok := cfg.RootLogger()
	if !ok || name != "app" {
		t.Fatalf("expected app root logger, got %q ok=%v", name, ok)
	}
	if lg.PropagateEnabled() {
		t.Fatal("expected sample root logger to stop propagation")
	}
	if cfg.Queue.Capacity != 10000 {
		t.Fatalf("unexpected queue capacity %d", cfg.Queue.Capacity)
	}
	file := cfg.Handlers["file"]
	if want := filepath.Join(home, ".local", "state", "pyproj", "logs", "app.log"); file.Filename != want {
		t.Fatalf("expected expanded log path %q, got %q", want, file.Filename)
	}
	if file.MaxBytes != 10485760 || file.BackupCount != 5 {
		t.Fatalf("unexpected rotation settings %d/%d", file.MaxBytes, file.BackupCount)
	}
	if got := cfg.Handlers["stdout"].Filters; len(got) != 2 {
		t.Fatalf("expected two stdout filters, got %v", got)
	}
}

func TestLoadPerFormat(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "toml",
			file: "logging.toml",
			body: `
default_level = "warning"

[handlers.out]
type = "stream"
stream = "stderr"

[loggers."svc.api"]
level = "debug"

[loggers.svc]
handlers = ["out"]
`,
		},
		{
			name: "json",
			file: "logging.json",
			body: `{
  "default_level": "warning",
  "handlers": {"out": {"type": "stream", "stream": "stderr"}},
  "loggers": {"svc.api": {"level": "debug"}, "svc": {"handlers": ["out"]}}
}`,
		},
		{
			name: "yaml",
			file: "logging.yml",
			body: `
default_level: warning
handlers:
  out:
    type: stream
    stream: stderr
loggers:
  svc.api:
    level: debug
  svc:
    handlers: [out]
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !exists || resolved != path {
				t.Fatalf("expected %s to be loaded, got %q exists=%v", path, resolved, exists)
			}
			if cfg.DefaultLevel != "WARNING" {
				t.Fatalf("expected normalized default level, got %q", cfg.DefaultLevel)
			}
			api, ok := cfg.Loggers["svc.api"]
			if !ok {
				t.Fatalf("dotted logger name was split: %v", cfg.Loggers)
			}
			if api.Level != "DEBUG" {
				t.Fatalf("expected DEBUG for svc.api, got %q", api.Level)
			}
			if name, _, _ := cfg.RootLogger(); name != "svc" {
				t.Fatalf("expected svc to own handlers, got %q", name)
			}
			if cfg.Queue.Capacity != 10000 {
				t.Fatalf("expected default capacity, got %d", cfg.Queue.Capacity)
			}
			if h := cfg.Handlers["out"]; h.Stream != "stderr" || h.Type != config.HandlerStream {
				t.Fatalf("unexpected handler %+v", h)
			}
		})
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadBytesValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "root section",
			body: "[root]\nlevel = \"DEBUG\"\n",
			want: "root logger is not permitted",
		},
		{
			name: "root by name",
			body: "[handlers.out]\ntype = \"stream\"\n[loggers.root]\nhandlers = [\"out\"]\n",
			want: "loggers.root",
		},
		{
			name: "two owners",
			body: "[handlers.out]\ntype = \"stream\"\n[loggers.a]\nhandlers = [\"out\"]\n[loggers.b]\nhandlers = [\"out\"]\n",
			want: "only the application logger may own handlers",
		},
		{
			name: "orphan handlers",
			body: "[handlers.out]\ntype = \"stream\"\n",
			want: "no logger owns them",
		},
		{
			name: "unknown handler type",
			body: "[handlers.out]\ntype = \"syslog\"\n[loggers.app]\nhandlers = [\"out\"]\n",
			want: "unknown handler type",
		},
		{
			name: "bad level",
			body: "default_level = \"LOUD\"\n",
			want: "default_level",
		},
		{
			name: "dangling formatter",
			body: "[handlers.out]\ntype = \"stream\"\nformatter = \"missing\"\n[loggers.app]\nhandlers = [\"out\"]\n",
			want: "unknown formatter",
		},
		{
			name: "dangling filter",
			body: "[handlers.out]\ntype = \"stream\"\nfilters = [\"missing\"]\n[loggers.app]\nhandlers = [\"out\"]\n",
			want: "unknown filter",
		},
		{
			name: "dangling handler",
			body: "[loggers.app]\nhandlers = [\"missing\"]\n",
			want: "unknown handler",
		},
		{
			name: "file without filename",
			body: "[handlers.f]\ntype = \"rotating_file\"\n[loggers.app]\nhandlers = [\"f\"]\n",
			want: "filename must be set",
		},
		{
			name: "negative backups",
			body: "[handlers.f]\ntype = \"rotating_file\"\nfilename = \"/tmp/x.log\"\nbackup_count = -1\n[loggers.app]\nhandlers = [\"f\"]\n",
			want: "backup_count",
		},
		{
			name: "bad collision",
			body: "[formatters.j]\ntype = \"json\"\ncollision = \"overwrite\"\n",
			want: "collision",
		},
		{
			name: "prefix ending in dot",
			body: "[filters.f]\naccept_name_prefix = \"app.\"\n",
			want: "accept_name_prefix",
		},
		{
			name: "negative capacity",
			body: "[queue]\ncapacity = -5\n",
			want: "queue.capacity",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadBytes([]byte(tc.body), config.FormatTOML)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadBytesMalformed(t *testing.T) {
	if _, err := config.LoadBytes([]byte("default_level = "), config.FormatTOML); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
	if _, err := config.LoadBytes([]byte("{}"), config.Format("ini")); !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadBytesEmptyIsValid(t *testing.T) {
	cfg, err := config.LoadBytes(nil, config.FormatTOML)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if _, _, ok := cfg.RootLogger(); ok {
		t.Fatal("expected no root logger without handlers")
	}
	if cfg.DefaultLevel != "INFO" {
		t.Fatalf("expected INFO default, got %q", cfg.DefaultLevel)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(config.SampleConfig()), config.FormatTOML)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	target := filepath.Join(t.TempDir(), "custom.log")
	env := map[string]string{
		config.EnvLogLevel: " error ",
		config.EnvLogFile:  target,
	}
	if err := cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.DefaultLevel != "ERROR" {
		t.Fatalf("expected ERROR default, got %q", cfg.DefaultLevel)
	}
	if got := cfg.Loggers["app"].Level; got != "ERROR" {
		t.Fatalf("expected ERROR for app logger, got %q", got)
	}
	files := cfg.FileHandlers()
	if len(files) != 1 || files[0].Filename != target {
		t.Fatalf("expected file handler redirected to %s, got %+v", target, files)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid after overrides: %v", err)
	}
}

func TestApplyEnvRejectsUnknownLevel(t *testing.T) {
	cfg := config.Default()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		if key == config.EnvLogLevel {
			return "chatty", true
		}
		return "", false
	})
	if err == nil || !strings.Contains(err.Error(), config.EnvLogLevel) {
		t.Fatalf("expected env level error, got %v", err)
	}
}

func TestApplyEnvIgnoresBlankValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(func(string) (string, bool) { return "  ", true }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.DefaultLevel != "INFO" {
		t.Fatalf("blank override changed level to %q", cfg.DefaultLevel)
	}
}

func TestNormalizeFillsDefaultsForHandBuiltConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Formatters = map[string]config.Formatter{"j": {Type: " JSON "}}
	cfg.Handlers = map[string]config.Handler{
		"out":  {Type: "Stream", Formatter: "j"},
		"file": {Type: "rotating_file", Formatter: "j", Filename: "logs/app.log"},
	}
	cfg.Loggers = map[string]config.Logger{"app": {Level: "warning", Handlers: []string{"out", "file"}}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail before normalizing")
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate after Normalize: %v", err)
	}

	f := cfg.Formatters["j"]
	if f.Type != config.FormatterJSON || f.Color != "auto" || f.Collision != "rename" {
		t.Fatalf("unexpected formatter defaults %+v", f)
	}
	if got := cfg.Handlers["out"].Stream; got != "stdout" {
		t.Fatalf("expected stdout stream, got %q", got)
	}
	file := cfg.Handlers["file"]
	if file.Rotation != config.RotationNumbered || !filepath.IsAbs(file.Filename) {
		t.Fatalf("unexpected file handler %+v", file)
	}
	if got := cfg.Loggers["app"].Level; got != "WARNING" {
		t.Fatalf("expected WARNING, got %q", got)
	}

	again := cfg.Clone()
	if err := again.Normalize(); err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	if again.Handlers["file"].Filename != file.Filename {
		t.Fatalf("Normalize is not idempotent: %q vs %q", again.Handlers["file"].Filename, file.Filename)
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg, err := config.LoadBytes([]byte(config.SampleConfig()), config.FormatTOML)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	clone := cfg.Clone()

	app := clone.Loggers["app"]
	app.Handlers[0] = "changed"
	*app.Propagate = true
	clone.Loggers["app"] = app
	h := clone.Handlers["stdout"]
	h.Filters[0] = "changed"

	orig := cfg.Loggers["app"]
	if orig.Handlers[0] != "stdout" || orig.PropagateEnabled() {
		t.Fatalf("clone shares logger state: %+v", orig)
	}
	if cfg.Handlers["stdout"].Filters[0] != "app_only" {
		t.Fatalf("clone shares handler filters: %v", cfg.Handlers["stdout"].Filters)
	}
}

func TestCreateSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logging.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected the written sample to be found")
	}
	if len(cfg.Handlers) != 3 || len(cfg.Formatters) != 2 || len(cfg.Filters) != 2 {
		t.Fatalf("unexpected sample shape: %d handlers, %d formatters, %d filters",
			len(cfg.Handlers), len(cfg.Formatters), len(cfg.Filters))
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]config.Format{
		"toml": config.FormatTOML,
		"JSON": config.FormatJSON,
		"yml":  config.FormatYAML,
		"yaml": config.FormatYAML,
	} {
		got, err := config.ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := config.ParseFormat("xml"); !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/logs/app.log")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if want := filepath.Join(home, "logs", "app.log"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
