// Package pathutil implements component S: a gitignore-aware project file
// walker and a subsequence fuzzy matcher, adapted from
// _examples/sacenox-symb/internal/filesearch's regex-based Searcher and
// GitignoreMatcher. The original searches by regex; this rewrites the
// matching core as an fzf-style fuzzy subsequence scorer since spec.md's
// file picker (component I) needs ranked fuzzy results, not regex hits. No
// pack example ships a fuzzy-matching library, so the scorer is hand-rolled
// against the standard library.
package pathutil

import (
	"sort"
	"strings"
	"unicode"
)

// Match is a scored fuzzy match against a candidate string.
type Match struct {
	Candidate string
	Score     int
	Positions []int
}

// FuzzyMatch scores candidate against pattern using subsequence matching:
// every rune of pattern must appear in candidate in order (case-insensitive),
// or the candidate does not match at all. Consecutive matches, matches at a
// segment boundary (after '/', '_', '-', '.' or whitespace), and matches at the very
// start score higher, rewarding the same "looks like what I typed" ranking
// fzf-style pickers give.
func FuzzyMatch(pattern, candidate string) (Match, bool) {
	if pattern == "" {
		return Match{Candidate: candidate, Score: 0}, true
	}
	p := []rune(strings.ToLower(pattern))
	c := []rune(candidate)
	cl := []rune(strings.ToLower(candidate))

	positions := make([]int, 0, len(p))
	score := 0
	pi := 0
	lastPos := -2
	for ci := 0; ci < len(cl) && pi < len(p); ci++ {
		if cl[ci] != p[pi] {
			continue
		}
		positions = append(positions, ci)
		gain := 1
		if ci == lastPos+1 {
			gain += 4 // consecutive run
		}
		if ci == 0 || isBoundary(c[ci-1]) {
			gain += 6 // segment-start bonus
		}
		if unicode.IsUpper(c[ci]) {
			gain += 1
		}
		score += gain
		lastPos = ci
		pi++
	}
	if pi < len(p) {
		return Match{}, false
	}
	// Penalize long trailing content after the match so tighter hits rank
	// above loose ones of the same candidate length.
	score -= (len(cl) - positions[len(positions)-1]) / 4
	return Match{Candidate: candidate, Score: score, Positions: positions}, true
}

func isBoundary(r rune) bool {
	return r == '/' || r == '_' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// FuzzyFilter matches pattern against every candidate, returning matches
// sorted best-first (stable on ties, preserving input order).
func FuzzyFilter(pattern string, candidates []string, limit int) []Match {
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if m, ok := FuzzyMatch(pattern, c); ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
