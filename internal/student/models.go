// Package student holds the registered-student aggregate and its lifecycle.
package student

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/identity"
)

// Student is the aggregate for a registered test candidate.
//
// Invariants:
//   - StudentNumber is issued exactly once at registration and never changes
//   - Document identifies the candidate uniquely across the platform
//   - FirstName and LastName are non-empty and at most 64 characters
//   - Active students only may create bookings
type Student struct {
	ID            uuid.UUID              `json:"id"`
	StudentNumber identity.StudentNumber `json:"student_number"`
	Document      identity.Document      `json:"document"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	Email         string                 `json:"email"`
	Active        bool                   `json:"active"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// NewStudent validates the personal details and builds the aggregate around
// an already issued student number.
func NewStudent(number identity.StudentNumber, doc identity.Document, firstName, lastName, email string, now time.Time) (*Student, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))

	if number.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "student number must be issued before construction")
	}
	if doc.Value == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity document is required")
	}
	if firstName == "" || len(firstName) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "first name must be 1 to 64 characters")
	}
	if lastName == "" || len(lastName) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "last name must be 1 to 64 characters")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "email is not a valid address")
		}
	}
	return &Student{
		ID:            uuid.New(),
		StudentNumber: number,
		Document:      doc,
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Deactivate soft-deletes the student. The student number stays reserved so
// it is never reissued.
func (s *Student) Deactivate(now time.Time) error {
	if !s.Active {
		return dErrors.New(dErrors.CodeConflict, "student is already deactivated")
	}
	s.Active = false
	s.UpdatedAt = now
	return nil
}
