// Package templates renders the HTML pages of the upload UI. The pages are
// written in .templ files; run `templ generate` after editing them.
package templates

//go:generate templ generate

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"
)

// DelimiterOption is one entry of the delimiter select.
type DelimiterOption struct {
	Value string
	Label string
}

// DelimiterOptions are offered by the upload form. An empty value means
// "detect".
var DelimiterOptions = []DelimiterOption{
	{Value: "", Label: "Detect automatically"},
	{Value: "comma", Label: "Comma ( , )"},
	{Value: "semicolon", Label: "Semicolon ( ; )"},
	{Value: "tab", Label: "Tab"},
	{Value: "pipe", Label: "Pipe ( | )"},
}

// UploadForm holds values to redisplay in the form.
type UploadForm struct {
	Delimiter string
	Column    string
	MaxSizeMB int64
}

// LabelCount is one bar of the summary chart.
type LabelCount struct {
	Label   string
	Count   int
	Percent float64
}

// ResultRow is one classified row.
type ResultRow struct {
	Label string
	Cells []string
}

// ResultsView is everything the results page shows.
type ResultsView struct {
	AnalysisID string
	FileName   string
	TextColumn string
	Delimiter  string
	Dropped    int
	Columns    []string
	LabelIndex int // position of the label within Columns and Cells
	Rows       []ResultRow
	Stats      []LabelCount
	Form       UploadForm
}

// maxSizeNote is the upload limit shown next to the file input.
func maxSizeNote(mb int64) string {
	if mb <= 0 {
		return ""
	}
	return " (max " + strconv.FormatInt(mb, 10) + " MB)"
}

// rowsNote summarises how many rows were classified and skipped.
func rowsNote(classified, dropped int) string {
	s := strconv.Itoa(classified) + " rows classified"
	if dropped > 0 {
		s += ", " + strconv.Itoa(dropped) + " without text skipped"
	}
	return s
}

// barWidth sizes a summary bar to its share of the rows.
func barWidth(percent float64) templ.SafeCSS {
	return templ.SafeCSS(fmt.Sprintf("width:%.1f%%", percent))
}
