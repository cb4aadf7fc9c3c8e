// Package fuzzy implements the subsequence matcher used by API search.
package fuzzy

import "unicode"

// Score weights
const (
	baseScore        = 1
	consecutiveBonus = 5
	startBonus       = 10
	boundaryBonus    = 7
	exactCaseBonus   = 2
)

// Result is a successful fuzzy match
type Result struct {
	Score   int
	Offsets []int // Rune positions in the target, strictly increasing
}

// Match checks whether every rune of query appears in target in order,
// ignoring case. Candidate positions are taken greedily from the left, but a
// later occurrence on a word boundary is preferred when it still leaves room
// for the rest of the query.
//
// An empty query matches everything with no offsets.
func Match(query, target string) (Result, bool) {
	if query == "" {
		return Result{}, true
	}

	qOrig := []rune(query)
	q := lower(qOrig)
	tOrig := []rune(target)
	t := lower(tOrig)

	if len(q) > len(t) {
		return Result{}, false
	}

	m := Result{Offsets: make([]int, 0, len(q))}
	last := -1
	pos := 0
	for qi := range q {
		found := -1
		for ; pos < len(t); pos++ {
			if t[pos] == q[qi] {
				found = pos
				break
			}
		}
		if found < 0 {
			return Result{}, false
		}

		// Jump to a boundary occurrence if the current one is not consecutive
		if found != last+1 && !isWordBoundary(tOrig, found) {
			if b := nextBoundary(t, tOrig, q[qi], found+1); b >= 0 && fits(t, q[qi+1:], b+1) {
				found = b
			}
		}

		score := baseScore
		if found == last+1 && last >= 0 {
			score += consecutiveBonus
		}
		if found == 0 {
			score += startBonus
		}
		if isWordBoundary(tOrig, found) {
			score += boundaryBonus
		}
		if tOrig[found] == qOrig[qi] {
			score += exactCaseBonus
		}
		m.Score += score
		m.Offsets = append(m.Offsets, found)

		last = found
		pos = found + 1
	}

	// Shorter targets rank higher
	m.Score -= len(t) / 4
	return m, true
}

// Score returns the match score, or 0 if query does not match target
func Score(query, target string) int {
	m, ok := Match(query, target)
	if !ok {
		return 0
	}
	return m.Score
}

// lower folds case rune by rune so positions stay aligned with the original
func lower(runes []rune) []rune {
	out := make([]rune, len(runes))
	for i, r := range runes {
		out[i] = unicode.ToLower(r)
	}
	return out
}

func nextBoundary(t, tOrig []rune, r rune, from int) int {
	for i := from; i < len(t); i++ {
		if t[i] == r && isWordBoundary(tOrig, i) {
			return i
		}
	}
	return -1
}

// fits reports whether rest is a subsequence of t[from:]
func fits(t, rest []rune, from int) bool {
	i := 0
	for pos := from; pos < len(t) && i < len(rest); pos++ {
		if t[pos] == rest[i] {
			i++
		}
	}
	return i == len(rest)
}

// isWordBoundary returns true at the start of the text, after a separator,
// or on a lower-to-upper camelCase transition
func isWordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}

	prev := runes[pos-1]
	switch prev {
	case ' ', '/', '-', '_', '.', '(', '\'', ',', '[':
		return true
	}

	return unicode.IsLower(prev) && unicode.IsUpper(runes[pos])
}
