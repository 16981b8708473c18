// Package similarity scores how alike two drill sentences are.
//
// The score blends word-level overlap with character-level edit distance:
//
//	score = 0.7*jaccard(tokens(a), tokens(b)) + 0.3*(1 - editDistance(a, b))
//
// Both inputs are normalized first, so punctuation and case never matter.
package similarity

import (
	"strings"

	"pack_audit/internal/textnorm"
)

const (
	JaccardWeight  = 0.7
	EditDistWeight = 0.3
)

// Score returns a symmetric similarity in [0,1]. Two texts that normalize to
// the same string, including two empty texts, score exactly 1.
func Score(a, b string) float64 {
	na, nb := textnorm.Normalize(a), textnorm.Normalize(b)
	if na == nb {
		return 1
	}
	j := Jaccard(TokenSet(na), TokenSet(nb))
	d := NormalizedEditDistance(na, nb)
	return JaccardWeight*j + EditDistWeight*(1-d)
}

func TokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard is |A∩B| / |A∪B|, defined as 1 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// NormalizedEditDistance divides the Levenshtein distance by the longer
// string's length in characters.
func NormalizedEditDistance(a, b string) float64 {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 1
	}
	longest := max(len(ra), len(rb))
	return float64(levenshteinRunes(ra, rb)) / float64(longest)
}

// Levenshtein counts single-character inserts, deletes and substitutions.
func Levenshtein(a, b string) int {
	return levenshteinRunes([]rune(a), []rune(b))
}

func levenshteinRunes(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
