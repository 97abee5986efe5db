// Package metrics renders the outcome of a backup run as a Prometheus
// node-exporter textfile.
//
// Backups are short-lived processes, so nothing is served: the registry is
// filled from the run report and written atomically to the configured path,
// where the node exporter's textfile collector picks it up.
package metrics
