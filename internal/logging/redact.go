package logging

import (
	"bytes"
	"io"
)

const redactedMarker = "********"

// redactingWriter masks secrets in each write. slog handlers emit a whole
// record per Write, so a secret is never split across calls.
type redactingWriter struct {
	w       io.Writer
	secrets [][]byte
}

func newRedactingWriter(w io.Writer, secrets []string) io.Writer {
	var kept [][]byte
	for _, secret := range secrets {
		// Very short values would mask unrelated text.
		if len(secret) < 4 {
			continue
		}
		kept = append(kept, []byte(secret))
	}
	if len(kept) == 0 {
		return w
	}
	return &redactingWriter{w: w, secrets: kept}
}

func (r *redactingWriter) Write(p []byte) (int, error) {
	out := p
	for _, secret := range r.secrets {
		if bytes.Contains(out, secret) {
			out = bytes.ReplaceAll(out, secret, []byte(redactedMarker))
		}
	}
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}
