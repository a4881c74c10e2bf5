package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultSampleLines is how many records delimiter inference reads when
// Options.SampleLines is unset.
const DefaultSampleLines = 20

// candidateDelimiters in priority order; earlier entries win ties.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// InferDelimiter picks the field separator for data.
//
// Each candidate is used to parse the header plus up to sampleLines records.
// A candidate is consistent when every sampled record has the header's
// width. The consistent candidate with the widest header (more than one
// column) wins. Failing that, the candidate with the widest header wins and
// the row width policy reports the damage. A file that is one column under
// every candidate reports comma; Parse reads such a file one whole record
// per line.
func InferDelimiter(data []byte, sampleLines int) rune {
	d, _ := inferDelimiter(data, sampleLines)
	return d
}

// inferDelimiter is InferDelimiter plus the header width of the winner.
func inferDelimiter(data []byte, sampleLines int) (rune, int) {
	if sampleLines <= 0 {
		sampleLines = DefaultSampleLines
	}

	best, bestWidth := ',', 1
	widest, widestWidth := ',', 1

	for _, d := range candidateDelimiters {
		width, consistent := sampleWidth(data, d, sampleLines)
		if consistent && width > bestWidth {
			best, bestWidth = d, width
		}
		if width > widestWidth {
			widest, widestWidth = d, width
		}
	}

	if bestWidth > 1 {
		return best, bestWidth
	}
	return widest, widestWidth
}

// wholeRecordSeparators are control and private-use runes that stand in as
// the separator of a single-column file.
var wholeRecordSeparators = []rune{'\x1f', '\x1e', '\x1d', '\x1c', '\uE000', '\uF8FF'}

// wholeRecordSeparator returns a separator that never occurs in data, so
// every line parses as one field. Commas, semicolons and the like stay part
// of the text.
func wholeRecordSeparator(data []byte) (rune, bool) {
	for _, r := range wholeRecordSeparators {
		if !bytes.ContainsRune(data, r) {
			return r, true
		}
	}
	return 0, false
}

// sampleWidth returns the header width under delim and whether the sampled
// records all match it.
func sampleWidth(data []byte, delim rune, sampleLines int) (int, bool) {
	r := newCSVReader(data, delim)

	header, err := r.Read()
	if err != nil {
		return 0, false
	}
	width := len(header)

	consistent := true
	for i := 0; i < sampleLines; i++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return width, false
		}
		if len(record) != width {
			consistent = false
		}
	}
	return width, consistent
}

// ParseDelimiter converts a user-supplied delimiter name to a rune.
// Accepts a single character or the names "comma", "semicolon", "tab",
// "pipe" and the escape "\t". The empty string means infer (returns 0).
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "tab", `\t`:
		return '\t', nil
	case "pipe":
		return '|', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !validDelimiter(r) {
		return 0, fmt.Errorf("invalid delimiter %q", s)
	}
	return r, nil
}

// validDelimiter mirrors the constraints encoding/csv puts on Comma.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}
