// Package main hosts the pyproj CLI entrypoint and command graph.
//
// The Cobra-based command tree scaffolds and validates logging
// configuration, drives the pipeline end to end with `pyproj emit`, and
// reads the JSON file sink back with `pyproj logs`. Configuration is
// resolved once per invocation; the pipeline itself lives in
// internal/logging.
package main
