// Package csvout renders export rows as CSV text.
//
// Quoting is deliberately narrower than RFC 4180 writers: quotes are always
// doubled, but a field is wrapped in quotes only when it contains a comma or
// a line break. Rows may carry a tail of dynamic cells keyed by id; the
// columns for that tail are fixed once per export so every row has the same
// width.
package csvout
