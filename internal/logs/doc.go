// Package logs reads crate's log file for the CLI.
//
// Tail returns the last lines with bounded memory, optionally only those
// mentioning a run id, and Follow polls for lines appended afterwards until
// the context is cancelled.
package logs
