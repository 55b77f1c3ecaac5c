package search

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Ranker scores a candidate against a query. ok is false for no match.
// positions are rune indexes into candidate.
type Ranker interface {
	Score(query, candidate string) (score int, positions []int, ok bool)
}

// NewRanker returns the ranker registered under name, defaulting to fuzzy.
func NewRanker(name string) Ranker {
	if name == "substring" {
		return SubstringRanker{}
	}
	return FuzzyRanker{}
}

// FuzzyRanker ranks with sahilm/fuzzy, which favours matches at word and
// path-separator boundaries and adjacent runs.
type FuzzyRanker struct{}

func (FuzzyRanker) Score(query, candidate string) (int, []int, bool) {
	if query == "" {
		return 0, nil, false
	}
	matches := fuzzy.Find(query, []string{candidate})
	if len(matches) == 0 {
		return 0, nil, false
	}
	return matches[0].Score, byteToRuneIndexes(candidate, matches[0].MatchedIndexes), true
}

// SubstringRanker does case-insensitive substring matching. Earlier matches
// score higher and a match inside the file name beats one in a parent dir.
type SubstringRanker struct{}

func (SubstringRanker) Score(query, candidate string) (int, []int, bool) {
	if query == "" {
		return 0, nil, false
	}

	lowerQuery := []rune(strings.ToLower(query))
	lowerName := []rune(strings.ToLower(candidate))
	idx := indexRunes(lowerName, lowerQuery)
	if idx == -1 {
		return 0, nil, false
	}

	matchedIndexes := make([]int, len(lowerQuery))
	for j := range lowerQuery {
		matchedIndexes[j] = idx + j
	}

	score := 1000 - idx
	if base := lastSlash(lowerName) + 1; idx >= base {
		score += 1000
		if idx == base {
			score += 500
		}
	}
	return score, matchedIndexes, true
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

func lastSlash(s []rune) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// byteToRuneIndexes converts ascending byte offsets into s to rune offsets.
// Offsets that do not fall on a rune start are dropped.
func byteToRuneIndexes(s string, byteIdx []int) []int {
	if len(byteIdx) == 0 {
		return nil
	}
	out := make([]int, 0, len(byteIdx))
	k := 0
	runeIdx := 0
	for b := range s {
		for k < len(byteIdx) && byteIdx[k] < b {
			k++
		}
		for k < len(byteIdx) && byteIdx[k] == b {
			out = append(out, runeIdx)
			k++
		}
		if k == len(byteIdx) {
			break
		}
		runeIdx++
	}
	return out
}
