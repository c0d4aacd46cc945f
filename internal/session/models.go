// Package session manages scheduled test sittings and their registration
// windows.
package session

import (
	"time"

	"github.com/google/uuid"

	dErrors "nbtbook/pkg/domain-errors"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Session is a single sitting of the test at a venue room.
//
// Invariants:
//   - RegistrationOpensAt < RegistrationClosesAt <= StartsAt
//   - Capacity never exceeds the room capacity it was created against
//   - Bookings are only accepted while the registration window is open
//     and Status is scheduled
type Session struct {
	ID                   uuid.UUID `json:"id"`
	VenueID              uuid.UUID `json:"venue_id"`
	RoomID               uuid.UUID `json:"room_id"`
	StartsAt             time.Time `json:"starts_at"`
	RegistrationOpensAt  time.Time `json:"registration_opens_at"`
	RegistrationClosesAt time.Time `json:"registration_closes_at"`
	FeeCents             int64     `json:"fee_cents"`
	Capacity             int       `json:"capacity"`
	Status               Status    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewSession validates the schedule and builds the aggregate. roomCapacity
// bounds the requested capacity; pass the capacity of the chosen room.
func NewSession(venueID, roomID uuid.UUID, startsAt, opensAt, closesAt time.Time, feeCents int64, capacity, roomCapacity int, now time.Time) (*Session, error) {
	if !startsAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "session must start in the future")
	}
	if !opensAt.Before(closesAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "registration must open before it closes")
	}
	if closesAt.After(startsAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "registration must close before the session starts")
	}
	if feeCents < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "fee cannot be negative")
	}
	if capacity < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "capacity must be at least 1")
	}
	if capacity > roomCapacity {
		return nil, dErrors.Newf(dErrors.CodeValidation, "capacity cannot exceed the room capacity of %d", roomCapacity)
	}
	return &Session{
		ID:                   uuid.New(),
		VenueID:              venueID,
		RoomID:               roomID,
		StartsAt:             startsAt.UTC(),
		RegistrationOpensAt:  opensAt.UTC(),
		RegistrationClosesAt: closesAt.UTC(),
		FeeCents:             feeCents,
		Capacity:             capacity,
		Status:               StatusScheduled,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// RegistrationOpen reports whether bookings are accepted at the given time.
func (s *Session) RegistrationOpen(now time.Time) bool {
	if s.Status != StatusScheduled {
		return false
	}
	return !now.Before(s.RegistrationOpensAt) && now.Before(s.RegistrationClosesAt)
}

// Cancel takes the session out of service. Completed sessions stay final.
func (s *Session) Cancel(now time.Time) error {
	switch s.Status {
	case StatusCancelled:
		return dErrors.New(dErrors.CodeConflict, "session is already cancelled")
	case StatusCompleted:
		return dErrors.New(dErrors.CodeConflict, "completed sessions cannot be cancelled")
	}
	s.Status = StatusCancelled
	s.UpdatedAt = now
	return nil
}

// Complete marks the sitting as held.
func (s *Session) Complete(now time.Time) error {
	if s.Status != StatusScheduled {
		return dErrors.Newf(dErrors.CodeConflict, "cannot complete a %s session", s.Status)
	}
	s.Status = StatusCompleted
	s.UpdatedAt = now
	return nil
}
