// Package preflight provides readiness checks for the Discogs API and the
// filesystem paths a backup writes to.
//
// The CLI "crate status" command runs RunAll and CheckLastRun and renders the
// results. Each check returns a Result instead of an error so that one
// failing check never hides the others.
package preflight
