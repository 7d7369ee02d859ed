// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package language normalizes language codes and names found in provider
// records and queries to ISO 639-1 base codes ("en", "fr").
package language

import (
	"strings"

	"golang.org/x/text/language"
)

// words maps English language names, which providers often send instead of
// codes, to their base codes.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"latin":      "la",
	"greek":      "el",
}

// bibliographic maps ISO 639-2/B codes that x/text does not resolve.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"gre": "el",
	"cze": "cs",
	"per": "fa",
	"rum": "ro",
	"slo": "sk",
	"wel": "cy",
}

// Normalize returns the base language code for s, or "" when s is empty
// or unrecognized. Region and script subtags are dropped: "en-GB" and
// "eng" both normalize to "en".
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if code, ok := words[s]; ok {
		return code
	}
	if code, ok := bibliographic[s]; ok {
		return code
	}
	tag, err := language.Parse(s)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// NormalizeAll normalizes each value, dropping blanks and duplicates while
// keeping first-seen order.
func NormalizeAll(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		code := Normalize(v)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// Same reports whether a and b name the same base language.
func Same(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
