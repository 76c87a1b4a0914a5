package validation_test

import (
	"strings"
	"testing"

	"github.com/modulus-erp/modulus-erp/internal/validation"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

const validIBAN = "TR330006100519786457841326"

func TestValidateIBAN(t *testing.T) {
	valid := []string{
		validIBAN,
		"TR803300006100519786457841",
		"tr330006100519786457841326",
		"TR33 0006 1005 1978 6457 8413 26",
	}
	for _, iban := range valid {
		if !validation.ValidateIBAN(iban) {
			t.Errorf("expected %q to be a valid IBAN", iban)
		}
	}

	invalid := []string{
		"",
		"TR33000610051978645784132",
		"TR3300061005197864578413261",
		"DE330006100519786457841326",
		"TR33000610051978645784132A",
	}
	for _, iban := range invalid {
		if validation.ValidateIBAN(iban) {
			t.Errorf("expected %q to be an invalid IBAN", iban)
		}
	}
}

func TestValidateIBANRejectsSingleDigitMutations(t *testing.T) {
	for i := 2; i < len(validIBAN); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if validIBAN[i] == d {
				continue
			}
			mutated := validIBAN[:i] + string(d) + validIBAN[i+1:]
			if validation.ValidateIBAN(mutated) {
				t.Fatalf("mutated IBAN %s unexpectedly valid", mutated)
			}
		}
	}
}

func TestFormatIBAN(t *testing.T) {
	got := validation.FormatIBAN(validIBAN)
	want := "TR33 0006 1005 1978 6457 8413 26"
	if got != want {
		t.Fatalf("FormatIBAN = %q, want %q", got, want)
	}
	if strings.ReplaceAll(got, " ", "") != validIBAN {
		t.Fatalf("formatting must not alter characters")
	}
}
