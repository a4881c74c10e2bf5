package core

import (
	"strings"

	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

// DefaultPreferredColumns are tried, in order, before content detection.
var DefaultPreferredColumns = []string{"comments", "comment"}

// DefaultSampleRows is how many rows content detection inspects.
const DefaultSampleRows = 100

// SelectOptions controls text column selection.
type SelectOptions struct {
	// Column names the text column explicitly. It must exist.
	Column string
	// Preferred names are matched case-insensitively against the trimmed
	// header, in order. Nil means DefaultPreferredColumns.
	Preferred []string
	// SampleRows bounds content detection. Zero means DefaultSampleRows.
	SampleRows int
}

// SelectTextColumn picks the column holding free text. An explicit column
// wins; otherwise the first preferred name present in the header; otherwise
// the first column whose sampled non-empty values are mostly non-numeric.
// The returned name is the header name as it appears in ds.
func SelectTextColumn(ds *tabular.Dataset, opts SelectOptions) (string, error) {
	if opts.Column != "" {
		i, ok := ds.ColumnIndex(opts.Column)
		if !ok {
			return "", &NoTextColumnError{Column: opts.Column, Columns: ds.Header}
		}
		return ds.Header[i], nil
	}

	preferred := opts.Preferred
	if preferred == nil {
		preferred = DefaultPreferredColumns
	}
	for _, want := range preferred {
		for _, h := range ds.Header {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(want)) {
				return h, nil
			}
		}
	}

	sample := opts.SampleRows
	if sample <= 0 {
		sample = DefaultSampleRows
	}
	if sample > len(ds.Rows) {
		sample = len(ds.Rows)
	}

	for col, h := range ds.Header {
		if isTextColumn(ds.Rows[:sample], col) {
			return h, nil
		}
	}

	return "", &NoTextColumnError{Columns: ds.Header}
}

// isTextColumn reports whether non-numeric values are a strict majority of
// the non-empty values in column col.
func isTextColumn(rows []tabular.Row, col int) bool {
	var nonEmpty, text int
	for _, r := range rows {
		v := r.Value(col)
		if strings.TrimSpace(v) == "" {
			continue
		}
		nonEmpty++
		if !IsNumeric(v) {
			text++
		}
	}
	return nonEmpty > 0 && text*2 > nonEmpty
}
