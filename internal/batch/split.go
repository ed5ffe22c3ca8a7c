// Package batch partitions a chunk's texts into token-budgeted batches for
// individual provider calls.
package batch

// DefaultCharsPerToken is the token estimate heuristic: roughly one token
// per four characters. Provider- and language-dependent, so it is a
// configuration default rather than a constant of the pipeline.
const DefaultCharsPerToken = 4

// Batch is a transient, chunk-relative slice [Start, End) of a chunk's
// texts. Batches exist only for the duration of one provider call and are
// never persisted.
type Batch struct {
	Start int
	End   int
	Texts []string
}

func (b Batch) Len() int { return b.End - b.Start }

// EstimateTokens returns the estimated token cost of one text, never less
// than 1 so that empty items still consume budget and cannot stall a batch.
func EstimateTokens(text string, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	n := len([]rune(text))
	if n == 0 {
		return 1
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Split greedily packs texts into batches whose cumulative estimated cost
// stays within budget. A single item whose own cost exceeds the budget is
// still emitted alone, otherwise splitting could never advance. Identical
// input and budget always produce identical boundaries.
//
// Auto and manual batching modes share this algorithm; they differ only in
// which budget value the caller supplies.
func Split(texts []string, budget, charsPerToken int) []Batch {
	n := len(texts)
	if n == 0 {
		return nil
	}
	if budget <= 0 {
		budget = 1
	}

	batches := make([]Batch, 0, 1)
	i := 0
	for i < n {
		acc := 0
		j := i
		for j < n {
			cost := EstimateTokens(texts[j], charsPerToken)
			if acc+cost > budget && j > i {
				break
			}
			acc += cost
			j++
		}
		if j == i {
			// Forced inclusion of a single oversized item.
			j = i + 1
		}
		batches = append(batches, Batch{Start: i, End: j, Texts: texts[i:j]})
		i = j
	}
	return batches
}
