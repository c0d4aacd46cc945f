package identity

import (
	"strings"

	dErrors "nbtbook/pkg/domain-errors"
)

// Passport length bounds for foreign identity and passport numbers.
const (
	MinPassportLength = 6
	MaxPassportLength = 20
)

// Passport is a foreign identity or passport number. There is no checksum;
// the format is six to twenty characters, uppercase letters and digits only.
// Input is trimmed and upper-cased before validation so lowercase user input
// is accepted but stored canonically.
type Passport struct {
	value string
}

// ParsePassport normalizes and validates a passport number.
func ParsePassport(s string) (Passport, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < MinPassportLength || len(s) > MaxPassportLength {
		return Passport{}, dErrors.Newf(dErrors.CodeValidation, "passport number must be between %d and %d characters", MinPassportLength, MaxPassportLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return Passport{}, dErrors.New(dErrors.CodeValidation, "passport number must contain only letters and digits")
		}
	}
	return Passport{value: s}, nil
}

// IsValidPassport is the non-throwing form of ParsePassport.
func IsValidPassport(s string) bool {
	_, err := ParsePassport(s)
	return err == nil
}

// String returns the canonical upper-case form.
func (p Passport) String() string {
	return p.value
}

// IsZero reports whether p is the zero value rather than a parsed number.
func (p Passport) IsZero() bool {
	return p.value == ""
}
