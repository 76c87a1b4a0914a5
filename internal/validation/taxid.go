// Package validation implements checksum validation for Turkish financial
// identifiers: VKN (Vergi Kimlik Numarası), TCKN (T.C. Kimlik Numarası) and
// Turkish IBANs. All functions are pure; malformed input yields false, never
// an error.
package validation

import "strings"

// TaxIDType classifies a tax identifier by length and checksum.
type TaxIDType string

const (
	// TaxIDVKN is a 10-digit organizational tax number.
	TaxIDVKN TaxIDType = "VKN"
	// TaxIDTCKN is an 11-digit individual identity number.
	TaxIDTCKN TaxIDType = "TCKN"
	// TaxIDInvalid marks any input failing length or checksum rules.
	TaxIDInvalid TaxIDType = "INVALID"
)

// ValidateVKN reports whether input is a valid 10-digit VKN.
func ValidateVKN(input string) bool {
	if len(input) != 10 || !allDigits(input) {
		return false
	}
	digits := toDigits(input)

	sum := 0
	for i := 0; i < 9; i++ {
		temp := (digits[i] + (9 - i)) % 10
		contribution := (temp * (1 << (9 - i))) % 9
		sum += contribution
		// A nonzero temp whose scaled product divides evenly by nine
		// contributes nine, not zero.
		if temp != 0 && contribution == 0 {
			sum += 9
		}
	}

	checksum := (10 - (sum % 10)) % 10
	return checksum == digits[9]
}

// ValidateTCKN reports whether input is a valid 11-digit TCKN.
func ValidateTCKN(input string) bool {
	if len(input) != 11 || !allDigits(input) {
		return false
	}
	digits := toDigits(input)
	if digits[0] == 0 {
		return false
	}

	sumOdd, sumEven := 0, 0
	for i := 0; i < 9; i++ {
		if i%2 == 0 {
			sumOdd += digits[i]
		} else {
			sumEven += digits[i]
		}
	}

	if ((sumOdd*7)-sumEven)%10 != digits[9] {
		return false
	}

	sumAll := 0
	for i := 0; i < 10; i++ {
		sumAll += digits[i]
	}
	return sumAll%10 == digits[10]
}

// TaxIDTypeOf strips non-digits and dispatches on the remaining length.
func TaxIDTypeOf(input string) TaxIDType {
	clean := stripNonDigits(input)
	switch len(clean) {
	case 10:
		if ValidateVKN(clean) {
			return TaxIDVKN
		}
	case 11:
		if ValidateTCKN(clean) {
			return TaxIDTCKN
		}
	}
	return TaxIDInvalid
}

// ValidateTaxNumber accepts either a VKN or a TCKN.
func ValidateTaxNumber(input string) bool {
	return TaxIDTypeOf(input) != TaxIDInvalid
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func toDigits(s string) []int {
	digits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		digits[i] = int(s[i] - '0')
	}
	return digits
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
