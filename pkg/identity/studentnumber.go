// Package identity holds the self-validating identifier value types of the
// platform: the system-issued student number and the two supported identity
// document formats. Values are immutable once constructed; conversion to the
// wire form is always explicit via String().
package identity

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/luhn"
)

const (
	// StudentNumberLength is year (4) + sequence (4) + check digit (1).
	StudentNumberLength = 9

	MinStudentNumberYear = 2000
	MaxStudentNumberYear = 9999
	MinSequence          = 1
	MaxSequence          = 9999
)

// StudentNumber is the system-issued nine-digit student identifier:
// a four-digit year, a four-digit per-year sequence and a check digit
// computed with luhn.ModeGeneric. The zero value is not a valid number;
// construct via GenerateStudentNumber or ParseStudentNumber.
type StudentNumber struct {
	value string
}

// GenerateStudentNumber formats and checksums a student number from its
// parts. Pure function, no I/O. Fails with CodeInvalidInput when year or
// sequence fall outside their ranges; callers constructing from the sequence
// allocator are expected to pass validated values.
func GenerateStudentNumber(year, sequence int) (StudentNumber, error) {
	if year < MinStudentNumberYear || year > MaxStudentNumberYear {
		return StudentNumber{}, dErrors.Newf(dErrors.CodeInvalidInput, "student number year must be between %d and %d", MinStudentNumberYear, MaxStudentNumberYear)
	}
	if sequence < MinSequence || sequence > MaxSequence {
		return StudentNumber{}, dErrors.Newf(dErrors.CodeInvalidInput, "student number sequence must be between %d and %d", MinSequence, MaxSequence)
	}
	payload := fmt.Sprintf("%04d%04d", year, sequence)
	check, err := luhn.ComputeCheckDigit(payload)
	if err != nil {
		return StudentNumber{}, err
	}
	return StudentNumber{value: payload + strconv.Itoa(check)}, nil
}

// ParseStudentNumber parses an existing student number string. The input is
// trimmed; it must be exactly nine digits and its check digit must validate.
func ParseStudentNumber(s string) (StudentNumber, error) {
	s = strings.TrimSpace(s)
	if len(s) != StudentNumberLength {
		return StudentNumber{}, dErrors.Newf(dErrors.CodeInvalidInput, "student number must be exactly %d digits", StudentNumberLength)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return StudentNumber{}, dErrors.New(dErrors.CodeInvalidInput, "student number must contain only digits")
		}
	}
	if !luhn.Validate(s, luhn.ModeGeneric) {
		return StudentNumber{}, dErrors.New(dErrors.CodeInvalidInput, "student number check digit is invalid")
	}
	return StudentNumber{value: s}, nil
}

// IsValidStudentNumber is the non-throwing form of ParseStudentNumber.
func IsValidStudentNumber(s string) bool {
	_, err := ParseStudentNumber(s)
	return err == nil
}

// Year returns the four-digit issue year.
func (n StudentNumber) Year() int {
	y, _ := strconv.Atoi(n.value[:4])
	return y
}

// Sequence returns the four-digit per-year sequence.
func (n StudentNumber) Sequence() int {
	s, _ := strconv.Atoi(n.value[4:8])
	return s
}

// CheckDigit returns the trailing check digit.
func (n StudentNumber) CheckDigit() int {
	return int(n.value[8] - '0')
}

// String returns the nine-digit wire form.
func (n StudentNumber) String() string {
	return n.value
}

// IsZero reports whether n is the zero value rather than a parsed number.
func (n StudentNumber) IsZero() bool {
	return n.value == ""
}

// MarshalText encodes the wire form, so JSON fields of this type serialize
// as the plain nine-digit string.
func (n StudentNumber) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

// UnmarshalText parses and validates the wire form.
func (n *StudentNumber) UnmarshalText(text []byte) error {
	parsed, err := ParseStudentNumber(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
