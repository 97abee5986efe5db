package records

import (
	"bytes"
	"encoding/json"
	"strings"
)

type named struct {
	Name  string `json:"name"`
	Catno string `json:"catno"`
}

type releaseFormat struct {
	Name         string   `json:"name"`
	Descriptions []string `json:"descriptions"`
}

// text renders a raw JSON value as a CSV cell. Absent and null are empty,
// strings are unquoted, other scalars keep their literal form, and
// composite values are compacted JSON.
func text(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}

func decodeNamed(raw json.RawMessage) []named {
	var entries []named
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

func joinNames(entries []named) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, entry.Name)
	}
	return strings.Join(parts, ", ")
}

func joinCatalogNumbers(entries []named) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, entry.Catno)
	}
	return strings.Join(parts, ", ")
}

// formatSummary is the first format's name followed by its descriptions.
func formatSummary(raw json.RawMessage) string {
	var formats []releaseFormat
	if len(raw) == 0 || json.Unmarshal(raw, &formats) != nil || len(formats) == 0 {
		return ""
	}
	parts := append([]string{formats[0].Name}, formats[0].Descriptions...)
	return strings.Join(parts, ", ")
}
