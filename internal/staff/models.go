// Package staff manages the back-office accounts that operate the
// registration platform.
package staff

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "nbtbook/pkg/domain-errors"
)

// Role controls which staff endpoints an account may call.
type Role string

const (
	// RoleAdmin can manage venues, sessions and other staff accounts.
	RoleAdmin Role = "admin"
	// RoleOperator can register students, record payments and results.
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Staff is an operator or administrator account.
//
// Invariants:
//   - Email is non-empty, lowercased and unique across accounts
//   - Role is admin or operator
//   - PasswordHash is a bcrypt hash, never the raw password
type Staff struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewStaff validates the inputs and hashes the password.
func NewStaff(email, fullName, password string, role Role, now time.Time) (*Staff, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email is not a valid address")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name cannot be empty")
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be admin or operator")
	}
	if len(password) < 10 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 10 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return &Staff{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CheckPassword reports whether the candidate matches the stored hash.
func (s *Staff) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(candidate)) == nil
}

// Deactivate marks the account inactive. Inactive accounts cannot log in.
func (s *Staff) Deactivate(now time.Time) error {
	if !s.Active {
		return dErrors.New(dErrors.CodeConflict, "staff account is already inactive")
	}
	s.Active = false
	s.UpdatedAt = now
	return nil
}
