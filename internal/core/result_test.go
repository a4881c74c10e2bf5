package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
)

func TestAnnotatedRow_MarshalJSON(t *testing.T) {
	ds := mustParse(t, "id;comments;rating\n1;Great;\n")
	row := AnnotatedRow{Row: ds.Rows[0], Sentiment: sentiment.Positive}

	got, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","comments":"Great","rating":null,"Sentiment":"Positive"}`, string(got))
}

func TestAnnotatedRow_OverwritesExistingSentiment(t *testing.T) {
	ds := mustParse(t, "Sentiment,comments\nold,bad service\n")
	row := AnnotatedRow{Row: ds.Rows[0], Sentiment: sentiment.Negative}

	got, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"Sentiment":"Negative","comments":"bad service"}`, string(got))

	// The input row is not modified.
	assert.Equal(t, "old", ds.Rows[0].Value(0))
}

func TestAnnotatedRow_EscapesKeysAndValues(t *testing.T) {
	ds := mustParse(t, "\"say \"\"hi\"\"\",comments\n\"<b>\",\"line1\nline2\"\n")
	got, err := json.Marshal(AnnotatedRow{Row: ds.Rows[0], Sentiment: sentiment.Neutral})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "<b>", decoded[`say "hi"`])
	assert.Equal(t, "line1\nline2", decoded["comments"])
}

func TestAggregate(t *testing.T) {
	rows := []AnnotatedRow{
		{Sentiment: sentiment.Positive},
		{Sentiment: sentiment.Negative},
		{Sentiment: sentiment.Positive},
		{Sentiment: sentiment.Neutral},
		{Sentiment: sentiment.Positive},
	}
	got := Aggregate(rows)
	assert.Equal(t, Tally{Positive: 3, Negative: 1, Neutral: 1}, got)
	assert.Equal(t, len(rows), got.Total())
	assert.Equal(t, 3, got.Count(sentiment.Positive))
	assert.Equal(t, 0, got.Count("Mixed"))

	assert.Equal(t, Tally{}, Aggregate(nil))
}

func TestResult_MarshalJSON(t *testing.T) {
	t.Run("body has feedback and stats only", func(t *testing.T) {
		ds := mustParse(t, "comments\nnice\n")
		res := &Result{
			ID:       "ignored",
			Feedback: []AnnotatedRow{{Row: ds.Rows[0], Sentiment: sentiment.Positive}},
			Stats:    Tally{Positive: 1},
			Dropped:  2,
		}
		got, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"feedback":[{"comments":"nice","Sentiment":"Positive"}],"stats":{"Positive":1,"Negative":0,"Neutral":0}}`,
			string(got))
		assert.True(t, strings.Index(string(got), `"Positive":1`) < strings.Index(string(got), `"Negative":0`))
	})

	t.Run("empty result keeps all labels", func(t *testing.T) {
		got, err := json.Marshal(&Result{})
		require.NoError(t, err)
		assert.Equal(t, `{"feedback":[],"stats":{"Positive":0,"Negative":0,"Neutral":0}}`, string(got))
	})
}

func TestResult_MarshalYAML(t *testing.T) {
	ds := mustParse(t, "b,a,comments\n2,,ok\n")
	res := &Result{
		Feedback: []AnnotatedRow{{Row: ds.Rows[0], Sentiment: sentiment.Neutral}},
		Stats:    Tally{Neutral: 1},
	}

	out, err := yaml.Marshal(res)
	require.NoError(t, err)

	want := `feedback:
    - b: "2"
      a: null
      comments: ok
      Sentiment: Neutral
stats:
    Positive: 0
    Negative: 0
    Neutral: 1
`
	assert.Equal(t, want, string(out))
}

func TestResult_Only(t *testing.T) {
	ds := mustParse(t, "comments\ngood\nbad\nmeh\nfine\n")
	labels := []sentiment.Label{sentiment.Positive, sentiment.Negative, sentiment.Neutral, sentiment.Positive}
	feedback := make([]AnnotatedRow, len(labels))
	for i, l := range labels {
		feedback[i] = AnnotatedRow{Row: ds.Rows[i], Sentiment: l}
	}
	res := &Result{ID: "a1", Feedback: feedback, Stats: Aggregate(feedback), Dropped: 1}

	pos := res.Only(sentiment.Positive)
	require.Len(t, pos.Feedback, 2)
	assert.Equal(t, "good", pos.Feedback[0].Row.Value(0))
	assert.Equal(t, "fine", pos.Feedback[1].Row.Value(0))
	assert.Equal(t, res.Stats, pos.Stats, "stats describe the whole file")
	assert.Equal(t, "a1", pos.ID)
	assert.Equal(t, 1, pos.Dropped)

	assert.Len(t, res.Feedback, 4, "original is untouched")

	got, err := json.Marshal(res.Only(sentiment.Negative))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"feedback":[{"comments":"bad","Sentiment":"Negative"}],"stats":{"Positive":2,"Negative":1,"Neutral":1}}`,
		string(got))

	none := (&Result{}).Only(sentiment.Neutral)
	assert.Empty(t, none.Feedback)
	got, err = json.Marshal(none)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"feedback":[]`)
}

func TestWriteCSV(t *testing.T) {
	ds := mustParse(t, "id;comments\n1;good\n2;\"a;b\"\n")
	res := &Result{
		Delimiter: ds.Delimiter,
		Header:    ds.Header,
		Feedback: []AnnotatedRow{
			{Row: ds.Rows[0], Sentiment: sentiment.Positive},
			{Row: ds.Rows[1], Sentiment: sentiment.Neutral},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res))
	assert.Equal(t, "id;comments;Sentiment\n1;good;Positive\n2;\"a;b\";Neutral\n", buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, &Result{Header: []string{"Sentiment", "x"}}))
	assert.Equal(t, "Sentiment,x\n", buf.String())
}

func TestDelimiterName(t *testing.T) {
	assert.Equal(t, "comma", DelimiterName(','))
	assert.Equal(t, "semicolon", DelimiterName(';'))
	assert.Equal(t, "tab", DelimiterName('\t'))
	assert.Equal(t, "pipe", DelimiterName('|'))
	assert.Equal(t, "", DelimiterName(0))
	assert.Equal(t, "'#'", DelimiterName('#'))
}
