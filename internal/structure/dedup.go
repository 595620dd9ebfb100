package structure

import (
	"strings"
	"unicode"

	"github.com/ppiankov/factlens/internal/model"
)

// DefaultSimilarityThreshold is the word-set similarity at which two
// findings of the same category count as duplicates
const DefaultSimilarityThreshold = 0.85

// Dedup drops findings that repeat an earlier finding of the same category.
// The first occurrence wins and order is preserved.
func Dedup(findings []model.RawFinding, threshold float64) []model.RawFinding {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	kept := make([]model.RawFinding, 0, len(findings))
	keptTokens := make([]map[string]struct{}, 0, len(findings))
	for _, f := range findings {
		tokens := tokenSet(f.Description)
		duplicate := false
		for i, k := range kept {
			if k.Category == f.Category && jaccard(tokens, keptTokens[i]) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, f)
		keptTokens = append(keptTokens, tokens)
	}
	return kept
}

// Similarity is the Jaccard index of the lowercase word sets of a and b
func Similarity(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
