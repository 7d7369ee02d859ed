// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity provides the string, set, identifier, date, publisher,
// and series similarity primitives shared by reconciliation and duplicate
// detection. All functions are pure and return 0 for degenerate input.
package similarity

import (
	"strings"

	"github.com/pdiddy/book-enricher/pkg/types"
)

// String returns the normalized Levenshtein similarity of a and b,
// 1 - distance/max(len), compared case-insensitively after trimming.
// Identical non-empty strings score 1; an empty side scores 0.
func String(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance between two rune slices using two
// rolling rows.
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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Array returns the Jaccard index of the lower-cased, trimmed value sets.
// Blank members are ignored; two empty sets score 0.
func Array(a, b []string) float64 {
	setA := lowerSet(a)
	setB := lowerSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for v := range setA {
		if setB[v] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = true
		}
	}
	return set
}

// ISBN returns 1 when any ISBN in a equals any ISBN in b after hyphens and
// spaces are stripped, and 0 otherwise. There is no partial credit.
func ISBN(a, b []string) float64 {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		if c := CompactISBN(v); c != "" {
			seen[c] = true
		}
	}
	for _, v := range b {
		if c := CompactISBN(v); c != "" && seen[c] {
			return 1
		}
	}
	return 0
}

// CompactISBN removes hyphens and spaces and upper-cases a trailing x.
func CompactISBN(s string) string {
	r := strings.NewReplacer("-", "", " ", "", "‐", "", "‑", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(s)))
}

// Date scores two publication dates by shared precision: same day 1,
// same month 0.9, same year 0.8, one year apart 0.6, two years apart 0.4,
// otherwise 0. A missing year on either side scores 0.
func Date(d1, d2 string) float64 {
	a, okA := ParseDate(d1)
	b, okB := ParseDate(d2)
	if !okA || !okB {
		return 0
	}
	if a.Year == b.Year {
		switch {
		case a.Month > 0 && a.Month == b.Month && a.Day > 0 && a.Day == b.Day:
			return 1
		case a.Month > 0 && a.Month == b.Month:
			return 0.9
		default:
			return 0.8
		}
	}
	switch diff := abs(a.Year - b.Year); diff {
	case 1:
		return 0.6
	case 2:
		return 0.4
	default:
		return 0
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Publisher compares two publisher names after corporate suffixes are
// stripped: equal names score 1, containment 0.9, otherwise String.
func Publisher(a, b string) float64 {
	na := StripCorporateSuffixes(a)
	nb := StripCorporateSuffixes(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	return String(na, nb)
}

// corporateSuffixes are trailing words dropped before publisher comparison.
var corporateSuffixes = map[string]bool{
	"inc": true, "incorporated": true, "ltd": true, "limited": true,
	"llc": true, "plc": true, "co": true, "corp": true, "corporation": true,
	"company": true, "publishers": true, "publisher": true, "publishing": true,
	"publications": true, "group": true, "books": true,
}

// StripCorporateSuffixes lower-cases a publisher name, spells out "&",
// removes punctuation and a leading "the", and drops trailing corporate
// suffix words such as Inc., Publishers, or Company.
func StripCorporateSuffixes(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "&", " and ")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ';', ':', '\'', '"', '(', ')':
			return ' '
		}
		return r
	}, name)
	words := strings.Fields(name)
	if len(words) > 1 && words[0] == "the" {
		words = words[1:]
	}
	for len(words) > 1 && corporateSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// Series returns the best pairwise series similarity, weighting the name
// 0.8 and an exact volume match 0.2.
func Series(a, b []types.Series) float64 {
	best := 0.0
	for _, sa := range a {
		for _, sb := range b {
			score := 0.8 * String(sa.Name, sb.Name)
			va := strings.TrimSpace(sa.Volume)
			if va != "" && va == strings.TrimSpace(sb.Volume) {
				score += 0.2
			}
			best = max(best, score)
		}
	}
	return best
}
