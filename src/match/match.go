// Package match scores OCR candidates against a natural-language target
// phrase using token and fuzzy matching.
package match

import (
	"regexp"
	"strings"

	"screen-assistant/src/ocr"
)

const (
	minTokenLen      = 3
	maxEditDistance  = 2
	minFuzzyTokenLen = 4
)

// Words that carry no locating power in phrases like "highlight the Save
// button". Matching on these would pick arbitrary UI chrome, so a target that
// reduces to nothing yields no match at all.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "please": true,
	"make": true, "highlight": true, "find": true, "show": true, "locate": true,
	"click": true, "open": true, "press": true, "select": true, "point": true,
	"button": true, "menu": true, "icon": true, "item": true, "option": true,
	"window": true, "element": true, "text": true, "field": true, "label": true,
	"area": true, "screen": true, "box": true, "tab": true, "link": true,
}

var wordSplit = regexp.MustCompile(`\W+`)

// Tokenize lower-cases the phrase, splits on non-word characters, and drops
// stop words and short tokens.
func Tokenize(phrase string) []string {
	var tokens []string
	for _, raw := range wordSplit.Split(strings.ToLower(phrase), -1) {
		if len(raw) < minTokenLen || stopWords[raw] {
			continue
		}
		tokens = append(tokens, raw)
	}
	return tokens
}

// Tier classifies how strongly a candidate matched the target.
type Tier int

const (
	TierNone Tier = iota
	TierFuzzy
	TierExact
)

// Match returns the candidates matching the target phrase, best tier first:
// if any exact-tier candidates exist only those are returned, otherwise the
// fuzzy tier, otherwise nothing. fuzzyFloor is the minimum OCR confidence a
// candidate needs to be considered for fuzzy matching.
//
// A target whose tokens all fall away returns nothing; matching on noise is
// worse than admitting no match.
func Match(target string, candidates []ocr.Candidate, fuzzyFloor float64) []ocr.Candidate {
	targetTokens := Tokenize(target)
	if len(targetTokens) == 0 {
		return nil
	}

	var exact, fuzzy []ocr.Candidate
	for _, c := range candidates {
		switch Classify(targetTokens, c, fuzzyFloor) {
		case TierExact:
			exact = append(exact, c)
		case TierFuzzy:
			fuzzy = append(fuzzy, c)
		}
	}

	if len(exact) > 0 {
		return exact
	}
	return fuzzy
}

// Classify applies the exact/fuzzy tiering rule to a single candidate.
// The coordinator reuses this to re-validate selections returned by the
// vision service before trusting them.
func Classify(targetTokens []string, c ocr.Candidate, fuzzyFloor float64) Tier {
	candTokens := Tokenize(c.Text)
	if len(candTokens) == 0 {
		return TierNone
	}

	for _, ct := range candTokens {
		for _, tt := range targetTokens {
			if ct == tt {
				return TierExact
			}
		}
	}

	if c.Confidence < fuzzyFloor {
		return TierNone
	}
	for _, ct := range candTokens {
		if len(ct) < minFuzzyTokenLen {
			continue
		}
		for _, tt := range targetTokens {
			if Levenshtein(ct, tt) <= maxEditDistance {
				return TierFuzzy
			}
		}
	}

	return TierNone
}

// Best picks the tightest visual match among tied candidates: the smallest
// bounding-box area. Ties within a tier are otherwise kept for user
// disambiguation.
func Best(matches []ocr.Candidate) (ocr.Candidate, bool) {
	if len(matches) == 0 {
		return ocr.Candidate{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Box.Area() < best.Box.Area() {
			best = m
		}
	}
	return best, true
}

// Levenshtein computes the classic dynamic-programming edit distance.
func Levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minOf(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
