// Package history keeps a SQLite log of backup runs and the outcome of each
// resource within them.
//
// The database lives at <state_dir>/history.db. The schema is embedded and
// versioned; a version mismatch is reported instead of migrated, since the
// history is disposable.
package history
