package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

// VaderScorer scores text with the VADER lexicon and reports the compound
// score. The compound is exactly zero when no token carries lexicon valence.
type VaderScorer struct {
	analyzer      *govader.SentimentIntensityAnalyzer
	stripMarkdown bool
}

// NewVaderScorer loads the lexicon. When stripMarkdown is set, markdown
// markup and URLs are removed before scoring so link targets and emphasis
// markers do not reach the lexicon.
func NewVaderScorer(stripMarkdown bool) *VaderScorer {
	return &VaderScorer{
		analyzer:      govader.NewSentimentIntensityAnalyzer(),
		stripMarkdown: stripMarkdown,
	}
}

// Score implements Scorer.
func (v *VaderScorer) Score(text string) float64 {
	if v.stripMarkdown {
		text = PlainText(text)
	}
	return v.analyzer.PolarityScores(text).Compound
}

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// PlainText renders markdown to its visible text: emphasis markers, link
// targets and inline HTML are dropped, bare URLs removed and whitespace
// collapsed. Emoticons such as "<3", "</3" and ">:(" survive as text.
func PlainText(input string) string {
	root := blackfriday.New(blackfriday.WithNoExtensions()).Parse(escapeEmoticons(input))

	var b strings.Builder
	root.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		switch n.Type {
		case blackfriday.Text, blackfriday.Code:
			if entering {
				b.Write(n.Literal)
			}
		case blackfriday.CodeBlock:
			if entering {
				b.Write(n.Literal)
				b.WriteByte(' ')
			}
		case blackfriday.Softbreak, blackfriday.Hardbreak:
			b.WriteByte(' ')
		case blackfriday.Paragraph, blackfriday.Heading, blackfriday.Item, blackfriday.TableCell:
			if !entering {
				b.WriteByte(' ')
			}
		}
		return blackfriday.GoToNext
	})

	plain := urlPattern.ReplaceAllString(b.String(), "")
	return strings.Join(strings.Fields(plain), " ")
}

// escapeEmoticons backslash-escapes the angle brackets markdown would read as
// markup but that do not start one: a '<' not followed by a tag name, "/"
// plus tag name or "!", and a '>' opening a line directly followed by a
// non-space. "<b>" and "> quoted" keep their markdown meaning.
func escapeEmoticons(s string) []byte {
	out := make([]byte, 0, len(s)+8)
	lineStart := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '<' && !opensTag(s[i+1:]):
			out = append(out, '\\')
		case c == '>' && lineStart && i+1 < len(s) && !isSpace(s[i+1]):
			out = append(out, '\\')
		}
		out = append(out, c)

		switch {
		case c == '\n':
			lineStart = true
		case c != ' ' && c != '\t':
			lineStart = false
		}
	}
	return out
}

// opensTag reports whether rest, the text after a '<', begins a tag,
// closing tag or comment.
func opensTag(rest string) bool {
	if rest == "" {
		return false
	}
	if rest[0] == '/' {
		return len(rest) > 1 && isLetter(rest[1])
	}
	return rest[0] == '!' || isLetter(rest[0])
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
