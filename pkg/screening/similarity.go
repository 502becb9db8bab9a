package screening

import (
	"strings"
	"unicode/utf8"
)

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity returns (maxLen - distance) / maxLen * 100 over normalized
// names. Identical names score 100; an empty name against a non-empty one
// scores 0. The score is symmetric.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	maxLen := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	if maxLen == 0 {
		return 100
	}
	distance := Levenshtein(na, nb)
	return float64(maxLen-distance) / float64(maxLen) * 100
}

// Normalize lowercases a name and collapses runs of whitespace.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
