package identity

import (
	"time"

	dErrors "nbtbook/pkg/domain-errors"
)

// DocumentKind discriminates the two supported identity document formats.
type DocumentKind string

const (
	DocumentNationalID DocumentKind = "national_id"
	DocumentPassport   DocumentKind = "passport"
)

// Document is the validated identity document a student registers with.
// Value holds the canonical string form of whichever format Kind names.
type Document struct {
	Kind  DocumentKind
	Value string
}

// NewDocument validates raw user input against the named format and returns
// the canonical document. The clock feeds the national-id century inference.
func NewDocument(kind DocumentKind, value string, now time.Time) (Document, error) {
	switch kind {
	case DocumentNationalID:
		id, err := ParseNationalIDAt(value, now)
		if err != nil {
			return Document{}, err
		}
		return Document{Kind: kind, Value: id.String()}, nil
	case DocumentPassport:
		p, err := ParsePassport(value)
		if err != nil {
			return Document{}, err
		}
		return Document{Kind: kind, Value: p.String()}, nil
	default:
		return Document{}, dErrors.Newf(dErrors.CodeValidation, "unknown identity document kind %q", kind)
	}
}
