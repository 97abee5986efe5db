package listsync

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"crate/internal/services"
	"crate/internal/textutil"
)

const (
	// FolderName is the backup folder holding list artifacts.
	FolderName = "lists"
	// IndexFileName is the metadata index inside FolderName.
	IndexFileName = "meta.list.json"
)

// Artifact suffixes written for each list.
const (
	SuffixRawJSON = ".raw.json"
	SuffixJSON    = ".json"
	SuffixCSV     = ".csv"
)

// Entry is the persisted state of one list.
type Entry struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	LastChanged string `json:"lastChanged"`
}

// Index maps list ids to their entries.
type Index map[int64]Entry

// ParseIndex decodes a stored index. Empty content is an empty index.
func ParseIndex(data []byte) (Index, error) {
	index := Index{}
	if len(data) == 0 {
		return index, nil
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", services.ErrPersistence, IndexFileName, err)
	}
	return index, nil
}

// Marshal encodes the index with stable key order, so an unchanged index
// always produces identical bytes.
func (idx Index) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", services.ErrPersistence, IndexFileName, err)
	}
	return append(data, '\n'), nil
}

// Clone returns a shallow copy.
func (idx Index) Clone() Index {
	return maps.Clone(idx)
}

// IDs returns the ids in ascending order.
func (idx Index) IDs() []int64 {
	return slices.Sorted(maps.Keys(idx))
}

// Filename derives the artifact base name for a list: name and id joined by
// an underscore, lower-cased, anything outside [a-z0-9_-] replaced by '_'.
func Filename(name string, id int64) string {
	return textutil.SanitizeToken(name + "_" + strconv.FormatInt(id, 10))
}

// ArtifactNames lists every file a list can produce.
func ArtifactNames(filename string) []string {
	return []string{filename + SuffixRawJSON, filename + SuffixJSON, filename + SuffixCSV}
}
