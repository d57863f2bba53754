package classifier

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Closest maps a free-form model answer onto one of candidates. It tries a
// case and accent insensitive exact match, then the longest candidate the
// answer contains, then the candidate with the smallest edit distance.
// Generative backends use it; it returns "" only when candidates is empty.
func Closest(answer string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	a := fold(answer)
	folded := make([]string, len(candidates))
	for i, c := range candidates {
		folded[i] = fold(c)
		if folded[i] == a {
			return c
		}
	}

	best := -1
	for i, f := range folded {
		if f != "" && strings.Contains(a, f) && (best < 0 || len(f) > len(folded[best])) {
			best = i
		}
	}
	if best >= 0 {
		return candidates[best]
	}

	best, bestDist := 0, -1
	for i, f := range folded {
		d := levenshtein.ComputeDistance(a, f)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best]
}

func fold(s string) string {
	// Chains are stateful; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	return strings.Trim(out, ".\"'`*")
}
