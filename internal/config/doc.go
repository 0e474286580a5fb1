// Package config loads, normalizes, and validates the logging pipeline
// configuration.
//
// Files may be TOML, JSON, or YAML (chosen by extension) and are decoded
// through koanf into Config. Loading fills repository defaults, expands
// user paths (including tilde shortcuts), and rejects malformed topologies
// before any sink exists: unknown handler or formatter types, invalid level
// names, dangling references, a configured root logger, or more than one
// logger owning handlers. ApplyEnv overlays PYPROJ_LOG_LEVEL and
// PYPROJ_LOG_FILE after loading.
//
// When no file is found the embedded sample configuration is used, so a
// fresh install logs to the console and to a rotating JSON file.
package config
