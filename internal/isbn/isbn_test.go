package isbn

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0306406152", Normalize("0-306-40615-2"))
	assert.Equal(t, "080442957X", Normalize("0 8044 2957 x"))
	assert.Equal(t, "9780306406157", Normalize("978-0-306-40615-7"))
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"isbn10 hyphenated", "0-306-40615-2", true},
		{"isbn10 plain", "0306406152", true},
		{"isbn10 check X", "080442957X", true},
		{"isbn10 lowercase x", "080442957x", true},
		{"isbn10 bad check", "0306406153", false},
		{"isbn10 X in body", "03064X6152", false},
		{"isbn10 letters", "ABCDEFGHIJ", false},
		{"isbn13 hyphenated", "978-0-306-40615-7", true},
		{"isbn13 plain", "9780306406157", true},
		{"isbn13 spaces", "978 0 306 40615 7", true},
		{"isbn13 bad check", "9780306406158", false},
		{"isbn13 with letter", "978030640615X", false},
		{"empty", "", false},
		{"only separators", "- -", false},
		{"too short", "12345", false},
		{"eleven digits", "12345678901", false},
		{"fourteen digits", "97803064061570", false},
		{"unicode digits", "٩٧٨٠٣٠٦٤٠٦١٥٧", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.input))
		})
	}
}

func isbn10Check(body string) string {
	sum := 0
	for i, ch := range body {
		sum += (i + 1) * int(ch-'0')
	}
	if c := sum % 11; c != 10 {
		return strconv.Itoa(c)
	}
	return "X"
}

func isbn13Check(body string) string {
	sum := 0
	for i, ch := range body {
		d := int(ch - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return strconv.Itoa((10 - sum%10) % 10)
}

func randomDigits(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + r.Intn(10))
	}
	return string(b)
}

func TestValid_GeneratedISBN10AndCorruptions(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for n := 0; n < 200; n++ {
		body := randomDigits(r, 9)
		code := body + isbn10Check(body)
		assert.True(t, Valid(code), code)

		for pos := 0; pos < len(code); pos++ {
			for _, repl := range "0123456789X" {
				if repl == 'X' && pos != 9 {
					continue
				}
				if byte(repl) == code[pos] {
					continue
				}
				corrupt := code[:pos] + string(repl) + code[pos+1:]
				assert.False(t, Valid(corrupt), "corruption %s of %s", corrupt, code)
			}
		}
	}
}

func TestValid_GeneratedISBN13AndCorruptions(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for n := 0; n < 200; n++ {
		body := "978" + randomDigits(r, 9)
		code := body + isbn13Check(body)
		assert.True(t, Valid(code), code)

		for pos := 0; pos < len(code); pos++ {
			for repl := byte('0'); repl <= '9'; repl++ {
				if repl == code[pos] {
					continue
				}
				corrupt := code[:pos] + string(repl) + code[pos+1:]
				assert.False(t, Valid(corrupt), "corruption %s of %s", corrupt, code)
			}
		}
	}
}
