// Package listsync keeps per-list backups in step with the user's Discogs
// lists.
//
// A metadata index (lists/meta.list.json) remembers, for every list backed up
// so far, its generated filename and the date_changed value seen last time.
// Each run classifies every live list as new, unchanged, or changed, exports
// only new and changed lists, rewrites the index after every decision, and
// finally purges lists that disappeared upstream when configured to.
package listsync
