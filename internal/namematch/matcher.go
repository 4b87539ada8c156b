// Package namematch resolves the panchromatic partner of a multispectral
// file when no exact join key exists. It is a heuristic standing in for a
// missing stable identifier: the ranking accepts a nonzero mismatch rate
// in exchange for supporting inconsistent vendor naming, so production
// use should audit its choices.
package namematch

import (
	"errors"
	"strings"

	"github.com/agext/levenshtein"
)

// ErrNoMatch is returned when the candidate pool is empty or no pool
// entry is similar enough to the guess.
var ErrNoMatch = errors.New("no close name match")

// MinSimilarity is the cutoff below which a ranked candidate is not
// considered a match at all.
const MinSimilarity = 0.6

// Substitute builds the best-guess partner name by swapping the
// identifying marker, e.g. TILE-M1.TIF with "-M"/"-P" becomes
// TILE-P1.TIF. The guessed file may not exist; Closest resolves it
// against real glob results.
func Substitute(name, from, to string) string {
	if from == "" {
		return name
	}
	return strings.Replace(name, from, to, 1)
}

// Closest returns the pool entry most similar to candidate.
//
// An exact match wins outright. Otherwise entries are ranked by
// Levenshtein similarity; ties keep the earliest pool entry, so a caller
// that sorts the pool gets deterministic resolution. Entries below
// MinSimilarity never match.
func Closest(candidate string, pool []string) (string, error) {
	if len(pool) == 0 {
		return "", ErrNoMatch
	}
	for _, entry := range pool {
		if entry == candidate {
			return entry, nil
		}
	}

	best := ""
	bestScore := 0.0
	for _, entry := range pool {
		score := levenshtein.Similarity(candidate, entry, nil)
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if bestScore < MinSimilarity {
		return "", ErrNoMatch
	}
	return best, nil
}
