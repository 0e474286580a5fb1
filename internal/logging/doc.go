// Package logging implements the application's asynchronous logging pipeline.
//
// Producers obtain named loggers from a Pipeline and emit Records. A Record
// passes the namespace resolver (effective level by dotted-prefix
// inheritance), climbs the logger hierarchy until it reaches the application
// root logger, and is pushed onto a bounded Queue without blocking. A single
// Listener drains the queue and fans each Record out to every Sink whose
// threshold and filter accept it. Sinks render with either the color text
// renderer or the NDJSON renderer and write to a stream or a rotating file.
//
// Only the configured application root owns the queue-backed handler, so
// library loggers that live outside that namespace never reach the sinks.
// The host calls Pipeline.Configure once at start and Pipeline.Shutdown once
// at exit; nothing in this package starts goroutines on its own.
package logging
