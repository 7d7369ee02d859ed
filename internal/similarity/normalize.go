// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold removes diacritics so "Éditions" and "Editions" compare equal.
// A fresh transformer is built per call because transform chains are not
// safe for concurrent use.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeTitle returns a folded, lower-cased, punctuation-stripped title
// with "&" and "+" spelled as "and" and whitespace collapsed.
func NormalizeTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	s := strings.ToLower(Fold(title))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "+", " and ")
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeAuthor folds and lower-cases a personal name and reorders
// "Surname, Given" into "given surname".
func NormalizeAuthor(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i > 0 {
		name = strings.TrimSpace(name[i+1:]) + " " + strings.TrimSpace(name[:i])
	}
	return NormalizeTitle(name)
}

// TokenSet returns the distinct normalized words of s that are at least
// three characters long, in first-seen order.
func TokenSet(s string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range strings.Fields(NormalizeTitle(s)) {
		if len([]rune(tok)) < 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// stopWords are title words too common to narrow a search.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "from": true, "with": true, "into": true,
}

// SearchTokens is TokenSet without stop words. A title made only of stop
// words keeps them.
func SearchTokens(s string) []string {
	tokens := TokenSet(s)
	var out []string
	for _, tok := range tokens {
		if !stopWords[tok] {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return tokens
	}
	return out
}

// PartialDate is a date whose month and day may be unknown (zero).
type PartialDate struct {
	Year  int
	Month int
	Day   int
}

// String renders the date at its known precision.
func (d PartialDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return strconv.Itoa(d.Year)
	case d.Day == 0:
		return time.Date(d.Year, time.Month(d.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	default:
		return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}
}

// Precision counts the known components (1 year, 2 month, 3 day).
func (d PartialDate) Precision() int {
	switch {
	case d.Year == 0:
		return 0
	case d.Month == 0:
		return 1
	case d.Day == 0:
		return 2
	default:
		return 3
	}
}

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})(?:-(\d{1,2})(?:-(\d{1,2}))?)?`)
	yearPattern    = regexp.MustCompile(`(?:^|\D)(1[4-9]\d{2}|20\d{2})(?:\D|$)`)
)

var textDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2006",
	"Jan 2006",
	"01/02/2006",
}

// ParseDate extracts a PartialDate from ISO forms (YYYY, YYYY-MM,
// YYYY-MM-DD, RFC 3339), common English layouts, or any text holding a
// four-digit year. It reports false when no year is found.
func ParseDate(s string) (PartialDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PartialDate{}, false
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		d := PartialDate{}
		d.Year, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			month, _ := strconv.Atoi(m[2])
			if month >= 1 && month <= 12 {
				d.Month = month
				if m[3] != "" {
					day, _ := strconv.Atoi(m[3])
					if day >= 1 && day <= 31 {
						d.Day = day
					}
				}
			}
		}
		return d, true
	}
	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := PartialDate{Year: t.Year(), Month: int(t.Month())}
			if strings.Contains(layout, "2,") || strings.HasPrefix(layout, "2 ") || strings.Contains(layout, "/02/") {
				d.Day = t.Day()
			}
			return d, true
		}
	}
	if m := yearPattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		return PartialDate{Year: year}, true
	}
	return PartialDate{}, false
}
