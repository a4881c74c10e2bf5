package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaderScorer_Polarity(t *testing.T) {
	scorer := NewVaderScorer(true)

	tests := []struct {
		text string
		want Label
	}{
		{text: "I love this", want: Positive},
		{text: "This is great, thank you!", want: Positive},
		{text: "I hate this", want: Negative},
		{text: "Terrible support, awful experience", want: Negative},
		{text: "The meeting is at noon", want: Neutral},
	}

	c := NewClassifier(scorer)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p := scorer.Score(tt.text)
			assert.GreaterOrEqual(t, p, MinScore)
			assert.LessOrEqual(t, p, MaxScore)

			got, err := c.Classify(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "compound %v", p)
		})
	}
}

func TestVaderScorer_MarkdownDoesNotChangeSign(t *testing.T) {
	plain := NewVaderScorer(true).Score("I love this")
	marked := NewVaderScorer(true).Score("I **love** [this](https://example.com/review)")
	assert.Greater(t, plain, 0.0)
	assert.Greater(t, marked, 0.0)
}

func TestPlainText(t *testing.T) {
	t.Run("plain text unchanged", func(t *testing.T) {
		assert.Equal(t, "I love this", PlainText("I love this"))
	})

	t.Run("markup and urls removed", func(t *testing.T) {
		got := PlainText("**Great** product, see [docs](https://x.io/docs) and https://example.com/page")
		assert.Contains(t, got, "Great")
		assert.Contains(t, got, "product")
		assert.Contains(t, got, "docs")
		assert.NotContains(t, got, "**")
		assert.NotContains(t, got, "https://")
		assert.NotContains(t, got, "](")
	})

	t.Run("line breaks become spaces", func(t *testing.T) {
		got := PlainText("first line\nsecond line")
		assert.Equal(t, "first line second line", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", PlainText(""))
	})
}

func TestVaderScorer_EmoticonsSurviveMarkdown(t *testing.T) {
	raw := NewVaderScorer(false)
	stripped := NewVaderScorer(true)

	tests := []struct {
		text     string
		emoticon string
		want     Label
	}{
		{text: "wow... </3", emoticon: "</3", want: Negative},
		{text: "</3", emoticon: "</3", want: Negative},
		{text: "<3 <3", emoticon: "<3 <3", want: Positive},
		{text: "I <3 this shop", emoticon: "<3", want: Positive},
		{text: ">:(", emoticon: ">:(", want: Negative},
		{text: "delivery was late >:[", emoticon: ">:[", want: Negative},
	}

	c := NewClassifier(stripped)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Contains(t, PlainText(tt.text), tt.emoticon)
			assert.InDelta(t, raw.Score(tt.text), stripped.Score(tt.text), 1e-9)

			got, err := c.Classify(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlainText_TagsStillStripped(t *testing.T) {
	assert.Equal(t, "so good", PlainText("<b>so</b> <em>good</em>"))
	assert.Equal(t, "quoted text", PlainText("> quoted text"))
}
