package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

// SentimentColumn is the column added to every annotated row. A column of
// the same name in the upload is overwritten in place.
const SentimentColumn = "Sentiment"

// AnnotatedRow is an input row plus its label.
type AnnotatedRow struct {
	Row       tabular.Row
	Sentiment sentiment.Label
}

// annotatedColumns returns the output header for an input header and the
// position the label occupies in it.
func annotatedColumns(header []string) ([]string, int) {
	cols := append([]string(nil), header...)
	for i, h := range cols {
		if h == SentimentColumn {
			return cols, i
		}
	}
	return append(cols, SentimentColumn), len(header)
}

// Record returns the output columns and cells of the row, label included.
func (a AnnotatedRow) Record() ([]string, []string) {
	cols, at := annotatedColumns(a.Row.Columns())
	vals := a.Row.Values()
	if at == len(vals) {
		vals = append(vals, string(a.Sentiment))
	} else {
		vals[at] = string(a.Sentiment)
	}
	return cols, vals
}

// MarshalJSON writes the row as an object in header order. Empty cells are
// null.
func (a AnnotatedRow) MarshalJSON() ([]byte, error) {
	cols, vals := a.Record()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if vals[i] == "" {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(vals[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML keeps header order, which a map would lose.
func (a AnnotatedRow) MarshalYAML() (any, error) {
	cols, vals := a.Record()
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i, c := range cols {
		node.Content = append(node.Content, stringNode(c), cellNode(vals[i]))
	}
	return node, nil
}

// Tally counts rows per label. All three labels are always present.
type Tally struct {
	Positive int `json:"Positive" yaml:"Positive"`
	Negative int `json:"Negative" yaml:"Negative"`
	Neutral  int `json:"Neutral" yaml:"Neutral"`
}

// Add counts one row with label l. Unknown labels are ignored.
func (t *Tally) Add(l sentiment.Label) {
	switch l {
	case sentiment.Positive:
		t.Positive++
	case sentiment.Negative:
		t.Negative++
	case sentiment.Neutral:
		t.Neutral++
	}
}

// Count returns the number of rows labelled l.
func (t Tally) Count(l sentiment.Label) int {
	switch l {
	case sentiment.Positive:
		return t.Positive
	case sentiment.Negative:
		return t.Negative
	case sentiment.Neutral:
		return t.Neutral
	}
	return 0
}

// Total returns the number of classified rows.
func (t Tally) Total() int {
	return t.Positive + t.Negative + t.Neutral
}

// Aggregate counts each row's label exactly once.
func Aggregate(rows []AnnotatedRow) Tally {
	var t Tally
	for _, r := range rows {
		t.Add(r.Sentiment)
	}
	return t
}

// Result is the outcome of one analysis.
type Result struct {
	ID         string
	FileName   string
	TextColumn string
	Delimiter  rune
	Header     []string
	Feedback   []AnnotatedRow
	Stats      Tally
	Dropped    int // rows removed for an empty text cell
	Duration   time.Duration
}

// Columns returns the output header and the position of the label in it.
func (r *Result) Columns() ([]string, int) {
	return annotatedColumns(r.Header)
}

// Only returns a copy of r holding just the rows labelled l. Stats and
// Dropped still describe the whole file.
func (r *Result) Only(l sentiment.Label) *Result {
	out := *r
	out.Feedback = make([]AnnotatedRow, 0, r.Stats.Count(l))
	for _, row := range r.Feedback {
		if row.Sentiment == l {
			out.Feedback = append(out.Feedback, row)
		}
	}
	return &out
}

type resultBody struct {
	Feedback []AnnotatedRow `json:"feedback" yaml:"feedback"`
	Stats    Tally          `json:"stats" yaml:"stats"`
}

func (r *Result) body() resultBody {
	feedback := r.Feedback
	if feedback == nil {
		feedback = []AnnotatedRow{}
	}
	return resultBody{Feedback: feedback, Stats: r.Stats}
}

// MarshalJSON writes {"feedback": [...], "stats": {...}}.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.body())
}

// MarshalYAML mirrors the JSON body.
func (r *Result) MarshalYAML() (any, error) {
	return r.body(), nil
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func cellNode(s string) *yaml.Node {
	if s == "" {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return stringNode(s)
}

// DelimiterName renders a delimiter for logs and audit records.
func DelimiterName(d rune) string {
	switch d {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	case 0:
		return ""
	}
	return strconv.QuoteRune(d)
}
