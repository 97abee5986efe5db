package csvout

import (
	"strconv"
	"strings"
)

// DynamicColumn names one id-keyed column appended after the fixed columns.
type DynamicColumn struct {
	ID   int64
	Name string
}

// Cell is one id-keyed value of a row's dynamic tail.
type Cell struct {
	ID    int64
	Value string
}

// Row holds the fixed values of a record followed by its dynamic cells in
// source order. Duplicate ids are allowed; the last one wins when encoded.
type Row struct {
	Values  []string
	Dynamic []Cell
}

// EncodeField doubles every quote and wraps the result in quotes when it
// contains a comma, a line feed, or a carriage return.
func EncodeField(value string) string {
	escaped := strings.ReplaceAll(value, `"`, `""`)
	if strings.ContainsAny(escaped, ",\n\r") {
		return `"` + escaped + `"`
	}
	return escaped
}

// Encode renders the header line and every row. Each line ends with "\n".
func Encode(header []string, dynamic []DynamicColumn, rows []Row) string {
	var b strings.Builder

	names := make([]string, 0, len(header)+len(dynamic))
	names = append(names, header...)
	for _, column := range dynamic {
		names = append(names, column.Name)
	}
	writeLine(&b, names)

	line := make([]string, 0, len(header)+len(dynamic))
	for _, row := range rows {
		line = append(line[:0], row.Values...)
		if len(dynamic) > 0 {
			values := make(map[int64]string, len(row.Dynamic))
			for _, cell := range row.Dynamic {
				values[cell.ID] = cell.Value
			}
			for _, column := range dynamic {
				line = append(line, values[column.ID])
			}
		}
		writeLine(&b, line)
	}
	return b.String()
}

func writeLine(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EncodeField(field))
	}
	b.WriteByte('\n')
}

// DynamicColumns returns declared followed by every id seen in rows but not
// declared, in first-observed order, named "field_<id>".
func DynamicColumns(declared []DynamicColumn, rows []Row) []DynamicColumn {
	columns := make([]DynamicColumn, 0, len(declared))
	seen := make(map[int64]struct{}, len(declared))
	for _, column := range declared {
		if _, ok := seen[column.ID]; ok {
			continue
		}
		seen[column.ID] = struct{}{}
		columns = append(columns, column)
	}
	for _, row := range rows {
		for _, cell := range row.Dynamic {
			if _, ok := seen[cell.ID]; ok {
				continue
			}
			seen[cell.ID] = struct{}{}
			columns = append(columns, DynamicColumn{ID: cell.ID, Name: FallbackName(cell.ID)})
		}
	}
	return columns
}

// FallbackName is the column name used for an id without a declared name.
func FallbackName(id int64) string {
	return "field_" + strconv.FormatInt(id, 10)
}
