// Package services defines shared utilities consumed by the export pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, resource kinds, and list IDs for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into configuration, transport, malformed page, normalization, and
//     persistence errors.
//
// Use these helpers when wiring new resource exports so failure handling stays
// uniform: a normalization error is reported per record, everything else
// aborts the resource it happened in.
package services
