// Package export runs one backup pass over every selected resource.
//
// Resources are processed one at a time in a fixed order: profile,
// collection, wantlist, contributions, lists. A fatal error aborts only the
// resource it happened in; Report.Err joins every aborted resource so the
// caller can fail the run after the remaining resources finished.
package export
