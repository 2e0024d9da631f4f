// Package logging builds slog loggers for hevcify.
//
// Two output formats are supported: a compact console format for humans and
// JSON for machine consumption. Output always goes to stdout and, when a log
// directory is configured, to hevcify.log inside it.
package logging
