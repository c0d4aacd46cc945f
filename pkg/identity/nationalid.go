package identity

import (
	"strings"
	"time"

	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/luhn"
)

// NationalIDLength is the fixed length of the civil identity number.
const NationalIDLength = 13

// Gender is the label derived from the national identity number.
type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
)

// NationalID is the thirteen-digit civil identity number. Fixed character
// positions encode the date of birth (YYMMDD), a gender digit, a citizenship
// digit and a check digit validated with luhn.ModeNationalID.
//
// The derived attributes are extracted once at construction and immutable
// afterwards. The position and threshold semantics reproduce the issuing
// format as-is and are deliberately not "corrected" against any other
// standard.
type NationalID struct {
	value       string
	dateOfBirth time.Time
	gender      Gender
	citizen     bool
}

// ParseNationalID parses and validates a national identity number against
// the current UTC clock. See ParseNationalIDAt for the century inference
// rule.
func ParseNationalID(s string) (NationalID, error) {
	return ParseNationalIDAt(s, time.Now().UTC())
}

// ParseNationalIDAt parses and validates a national identity number. The
// input is trimmed. Validation failures carry CodeValidation with the
// specific reason: empty value, wrong length, non-digit characters, an
// impossible birth date, or a failing checksum.
//
// Century inference: a two-digit birth year less than or equal to the current
// two-digit year is placed in the current century, otherwise in the previous
// one. The comparison silently shifts as calendar time passes; it is kept
// exactly as issued for compatibility.
func ParseNationalIDAt(s string, now time.Time) (NationalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NationalID{}, dErrors.New(dErrors.CodeValidation, "national id is empty")
	}
	if len(s) != NationalIDLength {
		return NationalID{}, dErrors.Newf(dErrors.CodeValidation, "national id must be exactly %d digits", NationalIDLength)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return NationalID{}, dErrors.New(dErrors.CodeValidation, "national id must contain only digits")
		}
	}

	dob, err := birthDate(s, now)
	if err != nil {
		return NationalID{}, err
	}
	if !luhn.Validate(s, luhn.ModeNationalID) {
		return NationalID{}, dErrors.New(dErrors.CodeValidation, "national id check digit is invalid")
	}

	// Gender digit: below five reads as female. Citizenship digit: zero
	// reads as citizen, anything else as permanent resident.
	gender := GenderMale
	if s[6] < '5' {
		gender = GenderFemale
	}

	return NationalID{
		value:       s,
		dateOfBirth: dob,
		gender:      gender,
		citizen:     s[10] == '0',
	}, nil
}

// IsValidNationalID is the non-throwing check against the current UTC clock.
func IsValidNationalID(s string) bool {
	_, err := ParseNationalID(s)
	return err == nil
}

func birthDate(s string, now time.Time) (time.Time, error) {
	yy := digits2(s[0:2])
	mm := digits2(s[2:4])
	dd := digits2(s[4:6])

	if mm < 1 || mm > 12 {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "national id birth month is invalid")
	}

	currentYY := now.Year() % 100
	century := now.Year() - currentYY
	if yy > currentYY {
		century -= 100
	}
	year := century + yy

	dob := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 2), so a changed day or
	// month means the date did not exist.
	if dd < 1 || dob.Day() != dd || dob.Month() != time.Month(mm) {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "national id birth day is invalid")
	}
	return dob, nil
}

func digits2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

// String returns the thirteen-digit wire form.
func (n NationalID) String() string {
	return n.value
}

// DateOfBirth returns the birth date encoded in the number, at UTC midnight.
func (n NationalID) DateOfBirth() time.Time {
	return n.dateOfBirth
}

// Gender returns the gender label derived from the gender digit.
func (n NationalID) Gender() Gender {
	return n.gender
}

// IsCitizen reports whether the citizenship digit marks a citizen rather
// than a permanent resident.
func (n NationalID) IsCitizen() bool {
	return n.citizen
}

// IsZero reports whether n is the zero value rather than a parsed number.
func (n NationalID) IsZero() bool {
	return n.value == ""
}
