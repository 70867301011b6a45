// Package similarity implements the string metrics used to compare log tokens
// against the reference dictionary. All functions work on Unicode code points.
package similarity

// EditDistance returns the Levenshtein distance between a and b: the minimum
// number of single code point insertions, deletions and substitutions needed
// to turn one into the other.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}

	for i, cb := range rb {
		curr[0] = i + 1
		for j, ca := range ra {
			cost := 1
			if ca == cb {
				cost = 0
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ra)]
}

// BigramOverlap returns the Dice coefficient of the bigram multisets of a and b.
// It is 1 for identical non-empty strings and 0 when either string is empty.
func BigramOverlap(a, b string) float64 {
	return NGramOverlap(a, b, 2)
}

// NGramOverlap generalises BigramOverlap to windows of n code points. Each
// window of b is matched at most once.
func NGramOverlap(a, b string, n int) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ga, gb := NGrams(a, n), NGrams(b, n)
	total := len(ga) + len(gb)
	if total == 0 {
		return 0
	}

	used := make([]bool, len(gb))
	common := 0
	for _, x := range ga {
		for k, y := range gb {
			if !used[k] && x == y {
				used[k] = true
				common++
				break
			}
		}
	}
	return float64(2*common) / float64(total)
}

// NGrams returns the sliding windows of n code points in s, in order.
// Strings shorter than n yield no windows.
func NGrams(s string, n int) []string {
	if n <= 0 {
		return nil
	}
	r := []rune(s)
	if len(r) < n {
		return nil
	}
	out := make([]string, 0, len(r)-n+1)
	for i := 0; i+n <= len(r); i++ {
		out = append(out, string(r[i:i+n]))
	}
	return out
}

// Bigrams is shorthand for NGrams(s, 2).
func Bigrams(s string) []string { return NGrams(s, 2) }

// Trigrams is shorthand for NGrams(s, 3).
func Trigrams(s string) []string { return NGrams(s, 3) }
