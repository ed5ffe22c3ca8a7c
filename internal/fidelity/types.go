package fidelity

import "strings"

// DefaultThreshold is the score below which a back-translation is flagged
// for human review. A heuristic default, overridable via configuration.
const DefaultThreshold = 0.6

// Record is one back-translation measurement. It is diagnostic only and
// never alters the translated text it was measured against.
type Record struct {
	GlobalIndex int     `json:"index"`
	BackText    string  `json:"back_text"`
	Score       float64 `json:"score"`
}

// Checker scores back-translations against their sources.
type Checker struct {
	Threshold float64
}

func NewChecker(threshold float64) Checker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Checker{Threshold: threshold}
}

// Score compares case-folded source and back-translation.
func (c Checker) Score(source, back string) float64 {
	return Similarity(strings.ToLower(source), strings.ToLower(back))
}

// Low reports whether a score falls below the review threshold.
func (c Checker) Low(score float64) bool {
	return score < c.Threshold
}
