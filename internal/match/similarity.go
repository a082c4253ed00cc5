package match

// Returns a value between 0 (completely different) and 1 (identical) derived
// from the Levenshtein distance between a and b.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	distance := levenshtein(ra, rb)
	return 1.0 - float64(distance)/float64(max(len(ra), len(rb)))
}

// Two-row dynamic programming Levenshtein distance.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(
					prev[j]+1,   // deletion
					curr[j-1]+1, // insertion
					prev[j-1]+1, // substitution
				)
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
