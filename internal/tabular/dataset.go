// Package tabular loads delimited text (CSV, semicolon, tab or pipe
// separated) into an ordered, immutable set of rows keyed by header name.
//
// The loader holds the whole file in memory. Callers bound the input size
// through Options.MaxBytes; files above the limit fail with ErrFileTooLarge.
package tabular

import "strings"

// schema is the header shared by every row of a Dataset.
type schema struct {
	columns []string
	index   map[string]int // lowercased column name -> position
}

func newSchema(columns []string) *schema {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToLower(c)
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return &schema{columns: columns, index: idx}
}

// lookup resolves a column name, exact match first, then case-insensitive.
func (s *schema) lookup(name string) (int, bool) {
	for i, c := range s.columns {
		if c == name {
			return i, true
		}
	}
	i, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Row is one data line of a Dataset. It always holds exactly one value per
// header column, in header order. An empty string is an empty cell.
type Row struct {
	schema *schema
	values []string
}

// Len returns the number of cells, which equals the header width.
func (r Row) Len() int {
	return len(r.values)
}

// Value returns the cell at position i.
func (r Row) Value(i int) string {
	return r.values[i]
}

// Columns returns the header names in order.
func (r Row) Columns() []string {
	if r.schema == nil {
		return nil
	}
	return append([]string(nil), r.schema.columns...)
}

// Values returns a copy of the cells in header order.
func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// Dataset is the parsed content of one file.
type Dataset struct {
	Header    []string
	Rows      []Row
	Delimiter rune

	schema *schema
}

// ColumnIndex returns the position of the named column. Matching is exact
// first, then case-insensitive on the trimmed name.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	if d.schema == nil {
		d.schema = newSchema(d.Header)
	}
	return d.schema.lookup(name)
}

// NewRow builds a row against this dataset's header. Missing trailing
// values are padded with empty cells; extra values are dropped.
func (d *Dataset) NewRow(values ...string) Row {
	if d.schema == nil {
		d.schema = newSchema(d.Header)
	}
	cells := make([]string, len(d.Header))
	copy(cells, values)
	return Row{schema: d.schema, values: cells}
}
