package grading

import "github.com/pmezard/go-difflib/difflib"

// SimilarityThreshold is the minimum ratio for a free-text answer to be accepted.
const SimilarityThreshold = 0.8

// Similarity returns the sequence-matching ratio 2*M/T of the normalized forms
// of a and b, where M counts matched characters and T is the combined length.
// The underlying matcher is not strictly symmetric; callers always pass the
// user's text first.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	return difflib.NewMatcher(splitRunes(na), splitRunes(nb)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
