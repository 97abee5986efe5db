package records

import (
	"crate/internal/csvout"
	"crate/internal/discogs"
)

// Lookup maps ids to display names and remembers insertion order.
type Lookup struct {
	ids   []int64
	names map[int64]string
}

// NewLookup returns an empty lookup.
func NewLookup() *Lookup {
	return &Lookup{names: make(map[int64]string)}
}

// Add records name for id. A repeated id keeps its first position and takes the new name.
func (l *Lookup) Add(id int64, name string) {
	if _, ok := l.names[id]; !ok {
		l.ids = append(l.ids, id)
	}
	l.names[id] = name
}

// Name returns the display name for id.
func (l *Lookup) Name(id int64) (string, bool) {
	if l == nil {
		return "", false
	}
	name, ok := l.names[id]
	return name, ok
}

// Columns returns the lookup as CSV dynamic columns in insertion order.
func (l *Lookup) Columns() []csvout.DynamicColumn {
	if l == nil {
		return nil
	}
	columns := make([]csvout.DynamicColumn, 0, len(l.ids))
	for _, id := range l.ids {
		columns = append(columns, csvout.DynamicColumn{ID: id, Name: l.names[id]})
	}
	return columns
}

// FolderLookup builds the folder id to name map.
func FolderLookup(folders []discogs.Folder) *Lookup {
	lookup := NewLookup()
	for _, folder := range folders {
		lookup.Add(folder.ID, folder.Name)
	}
	return lookup
}

// FieldLookup builds the custom field id to name map.
func FieldLookup(fields []discogs.Field) *Lookup {
	lookup := NewLookup()
	for _, field := range fields {
		lookup.Add(field.ID, field.Name)
	}
	return lookup
}

// Aux bundles the lookups used while normalizing collection releases.
type Aux struct {
	Folders *Lookup
	Fields  *Lookup
}
