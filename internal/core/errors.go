package core

import (
	"fmt"
	"strings"
)

// MissingFileError means the request carried no file to analyse.
type MissingFileError struct {
	// Field is the form field that was expected to hold the file.
	Field string
}

func (e *MissingFileError) Error() string {
	return "No file uploaded"
}

// NoTextColumnError means no column could serve as the text column, or the
// explicitly requested one does not exist.
type NoTextColumnError struct {
	Column  string   // requested column, empty when detection was automatic
	Columns []string // columns present in the file
}

func (e *NoTextColumnError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("Column %q not found in CSV", e.Column)
	}
	return "No text column found in CSV"
}

// Detail lists the available columns, for logs and the HTML UI.
func (e *NoTextColumnError) Detail() string {
	if len(e.Columns) == 0 {
		return "the file has no columns"
	}
	return "available columns: " + strings.Join(e.Columns, ", ")
}
