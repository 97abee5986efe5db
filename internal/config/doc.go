// Package config loads, normalizes, and validates crate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCOGS_USERNAME and DISCOGS_TOKEN. Output format names are matched
// case-insensitively and rewritten to their canonical spelling.
//
// Validation failures wrap services.ErrConfiguration so callers can abort a
// run before any request reaches the Discogs API.
package config
