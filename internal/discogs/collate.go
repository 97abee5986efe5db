package discogs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"crate/internal/services"
)

// Collate extracts the array at the dotted path from every page and
// concatenates them in page order.
func Collate(path string, pages [][]byte) ([]json.RawMessage, error) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	var items []json.RawMessage
	for index, page := range pages {
		pageItems, err := extractArray(segments, page)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %s: %w", services.ErrMalformedPage, index+1, path, err)
		}
		items = append(items, pageItems...)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

func extractArray(segments []string, page []byte) ([]json.RawMessage, error) {
	current := json.RawMessage(page)
	for _, segment := range segments {
		var object map[string]json.RawMessage
		if err := json.Unmarshal(current, &object); err != nil {
			return nil, fmt.Errorf("expected object before %q: %w", segment, err)
		}
		next, ok := object[segment]
		if !ok {
			return nil, fmt.Errorf("key %q not found", segment)
		}
		current = next
	}
	if !bytes.HasPrefix(bytes.TrimSpace(current), []byte("[")) {
		return nil, fmt.Errorf("value is not an array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(current, &items); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	return items, nil
}
