// Package keywords turns free-text profiles into ranked terms and scores the
// overlap between two term lists.
package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"pairchat/backend/internal/config"
)

// separators split tokens in addition to whitespace.
const separators = ",，、.。;；:："

// Extract returns at most maxTerms significant terms of text, ranked by
// descending frequency with ties kept in first-occurrence order.
// A non-positive maxTerms means config.DefaultMaxKeywords.
//
// Empty or stop-word-only text yields no terms; that is not an error.
func Extract(text string, maxTerms int) []string {
	if maxTerms <= 0 {
		maxTerms = config.DefaultMaxKeywords
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Caser is stateful, so one per call.
	text = cases.Lower(language.Und).String(width.Fold.String(text))
	text = strings.Map(keepRune, text)

	var terms []string
	for _, field := range strings.FieldsFunc(text, isSeparator) {
		for _, run := range splitScripts(field) {
			if isHan(firstRune(run)) {
				terms = append(terms, segmentHan(run)...)
				continue
			}
			terms = append(terms, run)
		}
	}

	counts := make(map[string]int)
	var ranked []string
	for _, t := range terms {
		if utf8.RuneCountInString(t) < config.MinKeywordRunes || IsStopWord(t) {
			continue
		}
		if counts[t] == 0 {
			ranked = append(ranked, t)
		}
		counts[t]++
	}
	if len(ranked) == 0 {
		return nil
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > maxTerms {
		ranked = ranked[:maxTerms]
	}
	return ranked
}

func keepRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) || isHan(r) {
		return r
	}
	return ' '
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(separators, r)
}

func isHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

// splitScripts cuts s into maximal runs of Han and non-Han runes,
// so "go语言" becomes "go" and "语言".
func splitScripts(s string) []string {
	var runs []string
	start := 0
	prevHan := false
	for i, r := range s {
		han := isHan(r)
		if i > 0 && han != prevHan {
			runs = append(runs, s[start:i])
			start = i
		}
		prevHan = han
	}
	if start < len(s) {
		runs = append(runs, s[start:])
	}
	return runs
}

// segmentHan splits an unspaced run of ideographs on stop words (longest
// match first). Segments longer than two ideographs are emitted as
// overlapping bigrams.
func segmentHan(run string) []string {
	runes := []rune(run)
	var out []string
	start := 0
	for i := 0; i < len(runes); {
		if n := stopWordAt(runes, i); n > 0 {
			out = appendSegment(out, runes[start:i])
			i += n
			start = i
			continue
		}
		i++
	}
	return appendSegment(out, runes[start:])
}

func stopWordAt(runes []rune, i int) int {
	for n := maxStopRunes; n >= 1; n-- {
		if i+n <= len(runes) && IsStopWord(string(runes[i:i+n])) {
			return n
		}
	}
	return 0
}

func appendSegment(out []string, seg []rune) []string {
	if len(seg) <= 2 {
		if len(seg) > 0 {
			out = append(out, string(seg))
		}
		return out
	}
	for i := 0; i+1 < len(seg); i++ {
		out = append(out, string(seg[i:i+2]))
	}
	return out
}
