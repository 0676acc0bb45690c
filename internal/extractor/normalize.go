package extractor

import (
	"strconv"
	"strings"
)

// arabicDigits maps Arabic-Indic digits to their Latin equivalents.
// Storefronts in the region render prices with either set.
var arabicDigits = map[rune]rune{
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

// NormalizeDigits replaces Arabic-Indic digits with Latin digits,
// leaving every other rune untouched.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := arabicDigits[r]; ok {
			return d
		}
		return r
	}, s)
}

// CleanPrice turns a raw price string into a decimal value. Currency
// symbols and other non-numeric characters are stripped, Arabic-Indic
// digits are converted, and the remaining separators are normalized
// before parsing. A comma directly followed by exactly three digits in
// a string that also contains a later dot is treated as a thousands
// separator and dropped; any other comma is a decimal separator.
//
// Empty input and unparseable input both yield nil; a missing price is
// a first-class result, not an error.
func CleanPrice(raw string) *float64 {
	if raw == "" {
		return nil
	}

	s := NormalizeDigits(raw)

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	s = normalizeSeparators(b.String())

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func normalizeSeparators(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r != ',' {
			b.WriteRune(r)
			continue
		}
		if isThousandsComma(s, i) {
			continue
		}
		b.WriteRune('.')
	}
	return b.String()
}

// isThousandsComma reports whether the comma at offset i is grouping
// thousands: exactly three digits follow it and a dot appears later in
// the string.
func isThousandsComma(s string, i int) bool {
	rest := s[i+1:]
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits != 3 {
		return false
	}
	return strings.Contains(rest, ".")
}
