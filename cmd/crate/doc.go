// Package main hosts the crate CLI entrypoint and command graph.
//
// The Cobra-based command tree runs Discogs backups, renders the list index
// and run history, checks readiness, tails the log file, and scaffolds
// configuration. It
// centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
