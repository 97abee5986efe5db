// Package logging assembles structured slog loggers and formatting helpers used
// across crate.
//
// It owns the configurable console/JSON handlers and exposes context-aware
// helpers so export code can tag log lines with the run id, the resource kind
// being backed up, and the Discogs list id. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
