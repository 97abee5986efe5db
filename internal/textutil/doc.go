// Package textutil provides text helpers for generated backup filenames.
package textutil
