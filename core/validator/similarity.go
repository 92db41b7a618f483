package validator

import (
	"sort"

	"github.com/pmezard/go-difflib/difflib"
)

type scored struct {
	score float64
	value string
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Ratio is the SequenceMatcher similarity of a and b over characters, in [0, 1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// CloseMatches returns up to n candidates whose similarity to word is at
// least cutoff, best first. Equal scores are ordered by descending string.
func CloseMatches(word string, candidates []string, n int, cutoff float64) []string {
	if n <= 0 {
		return nil
	}

	m := difflib.NewMatcher(nil, chars(word))
	var results []scored
	for _, c := range candidates {
		m.SetSeq1(chars(c))
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff {
			if r := m.Ratio(); r >= cutoff {
				results = append(results, scored{score: r, value: c})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].value > results[j].value
	})
	if len(results) > n {
		results = results[:n]
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.value
	}
	return out
}
