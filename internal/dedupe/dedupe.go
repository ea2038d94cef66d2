// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe removes duplicate and near-duplicate signals from an
// ordered list. Stage one matches exact canonical URLs; stage two catches
// near-duplicate titles by string similarity. URL dedup runs first
// because two listings of one URL can carry orthogonally-phrased titles
// that a loose similarity ratio would miss, so the cheap, reliable key
// takes priority.
//
// The title stage is quadratic in survivors, fine at the pipeline's expected
// batch sizes (tens of items) but a known scaling limit should batches
// grow into the hundreds.
package dedupe

import (
	"strings"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// titleSimilarityThreshold marks a candidate a duplicate when exceeded.
const titleSimilarityThreshold = 0.85

// Signals filters an ordered list, keeping the first occurrence of each
// canonical URL and of each near-duplicate title. Input order is
// preserved for the survivors. Running Signals on its own output removes
// nothing further.
func Signals(signals []types.ScoredSignal) []types.ScoredSignal {
	seenURLs := make(map[string]bool)
	var kept []types.ScoredSignal

	for _, s := range signals {
		canonical := CanonicalURL(s.URL)
		// Absence of a URL can never mark a duplicate.
		if canonical != "" && seenURLs[canonical] {
			continue
		}

		if isNearDuplicateTitle(s.Title, kept) {
			continue
		}

		if canonical != "" {
			seenURLs[canonical] = true
		}
		kept = append(kept, s)
	}
	return kept
}

func isNearDuplicateTitle(title string, kept []types.ScoredSignal) bool {
	candidate := normalizeTitle(title)
	if candidate == "" {
		return false
	}
	for _, k := range kept {
		if Similarity(candidate, normalizeTitle(k.Title)) > titleSimilarityThreshold {
			return true
		}
	}
	return false
}

// CanonicalURL normalizes a URL into a deduplication key: scheme and a
// leading "www." host label are stripped, a trailing slash removed, and
// the result lower-cased. An empty URL canonicalizes to "".
func CanonicalURL(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.TrimSuffix(s, "/")
	return s
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Similarity returns a normalized string-similarity ratio in [0, 1]:
// 1 minus the Levenshtein distance divided by the longer length.
// Identical strings score 1.0; fully dissimilar strings approach 0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
