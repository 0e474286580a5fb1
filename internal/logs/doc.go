// Package logs reads back what the JSON file sink wrote.
//
// Tail walks the rotation chain oldest backup first so "last N lines"
// survives a rotation, and follow mode notices when the active file has
// been rotated underneath it. ParseEntry decodes one NDJSON line into an
// Entry for display; lines that are not JSON objects are kept verbatim.
//
// Callers supply context deadlines so follow-mode polling stops when the
// CLI exits.
package logs
