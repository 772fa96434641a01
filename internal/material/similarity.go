package material

import (
	"github.com/pmezard/go-difflib/difflib"
)

// SimilarityCutoff — минимальный ratio для нечёткого совпадения
const SimilarityCutoff = 0.6

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// closestMatch ищет лучшего кандидата с ratio >= cutoff по посимвольному
// SequenceMatcher. При равном ratio побеждает лексикографически больший.
func closestMatch(word string, candidates []string, cutoff float64) (string, bool) {
	m := difflib.NewMatcher(nil, runes(word))

	best, bestScore := "", -1.0
	for _, c := range candidates {
		m.SetSeq1(runes(c))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && c > best) {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= 0
}
