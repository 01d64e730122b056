// Package isbn validates ISBN-10 and ISBN-13 check digits.
package isbn

import (
	"regexp"
	"strings"
)

var (
	isbn10Pattern = regexp.MustCompile(`^(\d{9})(\d|X)$`)
	isbn13Pattern = regexp.MustCompile(`^\d{13}$`)

	separators = strings.NewReplacer("-", "", " ", "")
)

// Normalize strips hyphens and spaces and upper-cases the result, so
// "0-306-40615-2" becomes "0306406152" and a trailing "x" becomes "X".
func Normalize(s string) string {
	return strings.ToUpper(separators.Replace(s))
}

// Valid reports whether s is an ISBN-10 or ISBN-13 with a correct check
// digit. It never panics; empty and malformed input is invalid. Callers
// holding an optional value treat a missing one as invalid without calling
// Valid.
func Valid(s string) bool {
	n := Normalize(s)
	if len(n) == 10 {
		return valid10(n)
	}
	return valid13(n)
}

func valid10(n string) bool {
	m := isbn10Pattern.FindStringSubmatch(n)
	if m == nil {
		return false
	}

	check := 10
	if m[2] != "X" {
		check = int(m[2][0] - '0')
	}

	sum := 0
	for i, ch := range m[1] {
		sum += (i + 1) * int(ch-'0')
	}
	return sum%11 == check
}

func valid13(n string) bool {
	if !isbn13Pattern.MatchString(n) {
		return false
	}

	sum := 0
	for i := 0; i < len(n); i++ {
		d := int(n[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
