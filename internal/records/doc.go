// Package records projects raw Discogs items into the flat shapes written to
// filtered JSON and CSV backups.
//
// Normalizers are pure: they take one collated item plus read-only Lookup
// maps and return a value that owns all of its data. A missing required
// nested object is reported as services.ErrNormalization for that item only.
package records
