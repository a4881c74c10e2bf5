package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrFileTooLarge is returned when the input exceeds Options.MaxBytes.
var ErrFileTooLarge = errors.New("file too large")

// FormatError reports content that cannot be read as delimited text.
type FormatError struct {
	Line   int // 1-indexed source line, 0 when not tied to a line
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid csv: "
	if e.Line > 0 {
		msg += "line " + strconv.Itoa(e.Line) + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Options controls how Load reads its input.
type Options struct {
	// Delimiter is the field separator. Zero means infer it from the data.
	Delimiter rune

	// RequiredColumns must all be present in the header (case-insensitive).
	RequiredColumns []string

	// SampleLines is how many records delimiter inference inspects.
	SampleLines int

	// MaxBytes caps the raw input size. Zero or negative means no cap.
	MaxBytes int64
}

// Load reads r to the end and parses it into a Dataset.
//
// Row width policy: a row with fewer fields than the header is padded with
// empty cells. Surplus fields that are all blank (a trailing delimiter) are
// discarded. A row with surplus non-blank fields fails the load with a
// FormatError naming the line.
func Load(r io.Reader, opts Options) (*Dataset, error) {
	data, err := io.ReadAll(WrapForLoad(r, opts.MaxBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, opts.MaxBytes)
		}
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Parse(data, opts)
}

// Parse is Load for input that is already in memory and sanitized.
func Parse(data []byte, opts Options) (*Dataset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &FormatError{Reason: "no parsable header: file is empty"}
	}

	// delim is reported on the Dataset; split is what the reader uses. They
	// differ only for an inferred single-column file.
	delim := opts.Delimiter
	split := delim
	if delim == 0 {
		var width int
		delim, width = inferDelimiter(data, opts.SampleLines)
		split = delim
		if width <= 1 {
			if sep, ok := wholeRecordSeparator(data); ok {
				split = sep
			}
		}
	}
	if !validDelimiter(delim) {
		return nil, &FormatError{Reason: fmt.Sprintf("unsupported delimiter %q", delim)}
	}

	r := newCSVReader(data, split)

	raw, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FormatError{Reason: "no parsable header: file is empty"}
		}
		return nil, &FormatError{Line: parseErrorLine(err, 1), Reason: "no parsable header", Err: err}
	}

	header, err := normalizeHeader(raw)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Header:    header,
		Delimiter: delim,
		schema:    newSchema(header),
	}

	for _, col := range opts.RequiredColumns {
		if _, ok := ds.ColumnIndex(col); !ok {
			return nil, &FormatError{Reason: fmt.Sprintf("missing required column %q", col)}
		}
	}

	width := len(header)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Line: parseErrorLine(err, 0), Reason: "malformed record", Err: err}
		}

		line, _ := r.FieldPos(0)

		if len(record) > width {
			if !isBlank(record[width:]) {
				return nil, &FormatError{
					Line:   line,
					Reason: fmt.Sprintf("expected %d fields, got %d", width, len(record)),
				}
			}
			record = record[:width]
		}

		ds.Rows = append(ds.Rows, ds.NewRow(record...))
	}

	return ds, nil
}

// newCSVReader returns a reader that tolerates stray quotes and ragged rows.
// Width is enforced by Parse, not by encoding/csv.
func newCSVReader(data []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// normalizeHeader trims header names, names blank cells "Unnamed: <i>" and
// suffixes repeated names with ".1", ".2", ... so every column is addressable.
func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	named := 0
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		} else {
			named++
		}
		header[i] = h
	}
	if named == 0 {
		return nil, &FormatError{Line: 1, Reason: "no parsable header: all column names are empty"}
	}

	seen := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(h)
		n, dup := seen[key]
		seen[key] = n + 1
		if !dup {
			continue
		}
		for {
			candidate := h + "." + strconv.Itoa(n)
			if _, taken := seen[strings.ToLower(candidate)]; !taken {
				header[i] = candidate
				seen[strings.ToLower(candidate)] = 1
				break
			}
			n++
		}
	}
	return header, nil
}

func parseErrorLine(err error, fallback int) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Line
	}
	return fallback
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
