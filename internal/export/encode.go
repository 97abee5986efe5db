package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"crate/internal/services"
)

// prettyJSON encodes v with two-space indentation and without HTML escaping,
// so titles like "Simon & Garfunkel" stay readable.
func prettyJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode json: %w", services.ErrPersistence, err)
	}
	return buf.Bytes(), nil
}

// prettyBody re-indents a verbatim response body. A body that is not JSON is a
// transport failure: the API answered with something other than JSON.
func prettyBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return nil, fmt.Errorf("%w: response is not json: %w", services.ErrTransport, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
