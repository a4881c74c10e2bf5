package sentiment

import (
	"fmt"
	"math"
	"strings"
)

// Polarity bounds every Scorer must respect.
const (
	MinScore = -1.0
	MaxScore = 1.0
)

// Scorer computes a polarity score in [MinScore, MaxScore] for text.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(text string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(text string) float64 {
	return f(text)
}

// ClassificationError reports a value the scorer could not handle.
type ClassificationError struct {
	Value string
	Err   error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for %q: %v", truncate(e.Value, 40), e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// Classifier labels text using a Scorer. It holds no per-call state.
type Classifier struct {
	scorer Scorer
}

// NewClassifier returns a Classifier backed by scorer.
func NewClassifier(scorer Scorer) *Classifier {
	return &Classifier{scorer: scorer}
}

// Classify returns the label for text. Empty and whitespace-only text is
// Neutral without consulting the scorer.
func (c *Classifier) Classify(text string) (Label, error) {
	if strings.TrimSpace(text) == "" {
		return Neutral, nil
	}

	p, err := c.score(text)
	if err != nil {
		return "", err
	}
	return LabelForScore(p), nil
}

// score calls the scorer, turning panics and out-of-range results into a
// ClassificationError.
func (c *Classifier) score(text string) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ClassificationError{Value: text, Err: fmt.Errorf("scorer panic: %v", r)}
		}
	}()

	p = c.scorer.Score(text)
	if math.IsNaN(p) || p < MinScore || p > MaxScore {
		return 0, &ClassificationError{Value: text, Err: fmt.Errorf("polarity %v outside [%v, %v]", p, MinScore, MaxScore)}
	}
	return p, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
