// Package sentiment maps free text to a Positive, Negative or Neutral label
// from the sign of a polarity score.
package sentiment

import (
	"fmt"
	"strings"
)

// Label is the sentiment category attached to a classified row.
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Labels returns every label in reporting order.
func Labels() []Label {
	return []Label{Positive, Negative, Neutral}
}

// ParseLabel accepts a label name in any case.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown sentiment label %q", s)
}

// LabelForScore applies the sign rule: p > 0 is Positive, p < 0 is
// Negative and exactly zero is Neutral. No epsilon band is applied.
func LabelForScore(p float64) Label {
	switch {
	case p > 0:
		return Positive
	case p < 0:
		return Negative
	default:
		return Neutral
	}
}
