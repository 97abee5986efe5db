// Package discogs talks to the Discogs REST API on behalf of a single user.
//
// Client issues authenticated GET requests, never retries, and never treats a
// non-2xx status as a failure by itself: the body is returned to the caller
// and parsing decides. FetchPages follows the server-declared page count and
// Collate folds the item arrays of every page into one ordered slice.
package discogs
