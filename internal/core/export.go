package core

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the annotated rows with the upload's delimiter: the input
// header plus the Sentiment column, then one record per classified row.
func WriteCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	if res.Delimiter != 0 {
		cw.Comma = res.Delimiter
	}

	cols, _ := res.Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range res.Feedback {
		_, vals := row.Record()
		if err := cw.Write(vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
