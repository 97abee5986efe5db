package discogs

import (
	"encoding/json"
	"fmt"

	"crate/internal/services"
)

// Folder is a collection folder as returned by /collection/folders.
type Folder struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Field is a custom collection note field as returned by /collection/fields.
type Field struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Position int    `json:"position"`
	Public   bool   `json:"public"`
}

// ListSummary is one entry of a user's list-of-lists.
type ListSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DateChanged string `json:"date_changed"`
}

// DecodeFolders parses a /collection/folders body.
func DecodeFolders(body []byte) ([]Folder, error) {
	var payload struct {
		Folders []Folder `json:"folders"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode folders: %w", services.ErrTransport, err)
	}
	return payload.Folders, nil
}

// DecodeFields parses a /collection/fields body.
func DecodeFields(body []byte) ([]Field, error) {
	var payload struct {
		Fields []Field `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode fields: %w", services.ErrTransport, err)
	}
	return payload.Fields, nil
}

// DecodeListSummary parses one collated list-of-lists item.
func DecodeListSummary(raw json.RawMessage) (ListSummary, error) {
	var summary ListSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return ListSummary{}, fmt.Errorf("%w: decode list summary: %w", services.ErrMalformedPage, err)
	}
	return summary, nil
}
