// Package backupstore stores backup artifacts by exact name inside folders.
//
// Folders are slash-separated paths relative to the store root, "" being the
// root itself. FS writes to a directory tree with atomic renames and guards
// the root with a file lock; Memory keeps everything in a map and counts
// writes, which serves dry runs and tests.
package backupstore
