// Package luhn implements the alternating-doubling check digit scheme used by
// the student number and the national identity number.
//
// Two alternation phases coexist in this domain and both are kept as named
// modes. The student number appends a check digit computed over its payload
// with doubling starting on the payload's units digit. The national identity
// number is validated over the full digit string including its check digit,
// with doubling starting on the second digit from the right. The two
// conventions come from independently issued formats; do not unify them.
package luhn

import (
	dErrors "nbtbook/pkg/domain-errors"
)

// Mode selects the alternation phase used during validation.
type Mode int

const (
	// ModeGeneric validates numbers whose check digit was produced by
	// ComputeCheckDigit over the preceding digits.
	ModeGeneric Mode = iota
	// ModeNationalID validates national identity numbers: the alternating
	// sum over the full string, check digit included, must be divisible
	// by ten.
	ModeNationalID
)

// ComputeCheckDigit computes the check digit for a string of decimal digits.
// Scanning right to left, every second digit is doubled starting with the
// rightmost; doubled values above nine have nine subtracted. The check digit
// is whatever brings the total to the next multiple of ten.
//
// Returns CodeInvalidInput for an empty string or any non-digit character.
func ComputeCheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "check digit input is empty")
	}
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "check digit input must contain only digits")
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}
	return (10 - sum%10) % 10, nil
}

// Validate reports whether value, including its trailing check digit, passes
// the checksum under the given mode. It never fails: structural problems
// (too short, non-digit characters, unknown mode) simply return false.
func Validate(value string, mode Mode) bool {
	if len(value) < 2 {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	switch mode {
	case ModeGeneric:
		want, err := ComputeCheckDigit(value[:len(value)-1])
		if err != nil {
			return false
		}
		return int(value[len(value)-1]-'0') == want
	case ModeNationalID:
		sum := 0
		double := false
		for i := len(value) - 1; i >= 0; i-- {
			d := int(value[i] - '0')
			if double {
				d *= 2
				if d > 9 {
					d -= 9
				}
			}
			double = !double
			sum += d
		}
		return sum%10 == 0
	default:
		return false
	}
}
