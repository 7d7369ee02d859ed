// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"strconv"
	"strings"
)

// To13 converts an ISBN-10 to ISBN-13 by prepending 978 and computing the
// check digit. Returns an empty string if the input is not ten characters
// of ISBN-10 shape. The ISBN-10 check digit is not verified here.
func To13(isbn10 string) string {
	if len(isbn10) != 10 {
		return ""
	}
	base := "978" + isbn10[:9]
	check, ok := checkDigit13(base)
	if !ok {
		return ""
	}
	return base + strconv.Itoa(check)
}

// To10 converts a 978-prefixed ISBN-13 to ISBN-10. Returns an empty string
// if the input is not a convertible ISBN-13.
func To10(isbn13 string) string {
	if len(isbn13) != 13 || !strings.HasPrefix(isbn13, "978") {
		return ""
	}
	base := isbn13[3:12]
	sum := 0
	for i, c := range base {
		d, err := strconv.Atoi(string(c))
		if err != nil {
			return ""
		}
		sum += d * (10 - i)
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return base + "X"
	}
	return base + strconv.Itoa(check)
}

// checkDigit13 computes the ISBN-13 check digit over the first twelve digits.
func checkDigit13(base string) (int, bool) {
	if len(base) != 12 {
		return 0, false
	}
	sum := 0
	for i, c := range base {
		d, err := strconv.Atoi(string(c))
		if err != nil {
			return 0, false
		}
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return (10 - sum%10) % 10, true
}

// ValidISBN10 reports whether s is ten characters with a correct mod-11
// check digit (X standing for 10 in the last position).
func ValidISBN10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i, c := range s {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case (c == 'X' || c == 'x') && i == 9:
			d = 10
		default:
			return false
		}
		sum += d * (10 - i)
	}
	return sum%11 == 0
}

// ValidISBN13 reports whether s is a 978/979-prefixed ISBN-13 with a
// correct check digit.
func ValidISBN13(s string) bool {
	if len(s) != 13 || !(strings.HasPrefix(s, "978") || strings.HasPrefix(s, "979")) {
		return false
	}
	check, ok := checkDigit13(s[:12])
	if !ok {
		return false
	}
	return int(s[12]-'0') == check
}
