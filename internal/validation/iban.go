package validation

import (
	"math/big"
	"strings"
)

// ibanLength is the fixed length of a Turkish IBAN: "TR" plus 24 digits.
const ibanLength = 26

var mod97 = big.NewInt(97)

// ValidateIBAN reports whether input is a valid Turkish IBAN. Whitespace is
// stripped and letters uppercased before the mod-97 check. The rearranged
// numeral exceeds 64 bits, so the remainder is computed with math/big.
func ValidateIBAN(input string) bool {
	clean := normalizeIBAN(input)
	if len(clean) != ibanLength {
		return false
	}
	if !strings.HasPrefix(clean, "TR") {
		return false
	}
	if !allDigits(clean[2:]) {
		return false
	}

	rearranged := clean[4:] + clean[:4]
	var numeral strings.Builder
	numeral.Grow(len(rearranged) + 2)
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= 'A' && c <= 'Z' {
			// A=10 .. Z=35
			numeral.WriteString(big.NewInt(int64(c - 55)).String())
			continue
		}
		numeral.WriteByte(c)
	}

	n, ok := new(big.Int).SetString(numeral.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, mod97).Int64() == 1
}

// FormatIBAN groups the cleaned IBAN into blocks of four for display. It does
// not validate.
func FormatIBAN(input string) string {
	clean := normalizeIBAN(input)
	if clean == "" {
		return clean
	}
	var b strings.Builder
	b.Grow(len(clean) + len(clean)/4)
	for i := 0; i < len(clean); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(clean) {
			end = len(clean)
		}
		b.WriteString(clean[i:end])
	}
	return b.String()
}

func normalizeIBAN(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}
