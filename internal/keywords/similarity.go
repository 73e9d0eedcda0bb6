package keywords

import "pairchat/backend/internal/config"

// Candidate is a waiting user considered for a keyword match.
type Candidate struct {
	UserID   string
	Keywords []string
}

// Score returns the Jaccard similarity of a and b treated as sets.
// It is 0 when either side is empty.
func Score(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA, setB := toSet(a), toSet(b)

	shared := 0
	for term := range setA {
		if _, ok := setB[term]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// FindBestMatch scans candidates and keeps the strictly highest score at or
// above minSimilarity. Ties keep the first candidate, so callers that need
// reproducible results must pass candidates in a stable order.
// A negative minSimilarity means config.DefaultMinSimilarity.
func FindBestMatch(query []string, candidates []Candidate, minSimilarity float64) (Candidate, float64, bool) {
	if minSimilarity < 0 {
		minSimilarity = config.DefaultMinSimilarity
	}

	var best Candidate
	bestScore := 0.0
	found := false
	for _, c := range candidates {
		if len(c.Keywords) == 0 {
			continue
		}
		score := Score(query, c.Keywords)
		if score >= minSimilarity && score > bestScore {
			best, bestScore, found = c, score, true
		}
	}
	return best, bestScore, found
}

// Intersect returns the terms of a that also appear in b, in a's order and
// without duplicates.
func Intersect(a, b []string) []string {
	inB := toSet(b)
	seen := make(map[string]struct{}, len(a))
	var out []string
	for _, term := range a {
		if _, ok := inB[term]; !ok {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out
}

func toSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}
