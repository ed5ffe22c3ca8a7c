// Package fidelity measures round-trip translation fidelity by comparing
// source text against its back-translation.
package fidelity

// Similarity returns a 0–1 ratio between two strings: twice the total
// length of their matching blocks over the combined length. Two empty
// strings are identical by definition.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}

	b2j := make(map[rune][]int, len(rb))
	for j, r := range rb {
		b2j[r] = append(b2j[r], j)
	}

	matched := matchTotal(ra, rb, 0, len(ra), 0, len(rb), b2j)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// matchTotal sums the lengths of all matching blocks between a[alo:ahi] and
// b[blo:bhi]: find the longest common run, then recurse on both sides.
func matchTotal(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	i, j, k := longestMatch(a, alo, ahi, blo, bhi, b2j)
	if k == 0 {
		return 0
	}
	return k +
		matchTotal(a, b, alo, i, blo, j, b2j) +
		matchTotal(a, b, i+k, ahi, j+k, bhi, b2j)
}

func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
