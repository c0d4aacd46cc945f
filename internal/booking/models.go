// Package booking manages seat bookings, their payments and test results.
package booking

import (
	"time"

	"github.com/google/uuid"

	dErrors "nbtbook/pkg/domain-errors"
)

// MaxBookingsPerYear caps how many sittings a student may book per calendar
// year. Cancelled bookings do not count against the cap.
const MaxBookingsPerYear = 2

// Status is the lifecycle state of a booking.
type Status string

const (
	// StatusActive is a held seat awaiting the sitting.
	StatusActive Status = "active"
	// StatusCancelled releases the seat; the slot no longer counts against
	// the annual cap.
	StatusCancelled Status = "cancelled"
	// StatusCompleted means the sitting happened and a result was recorded.
	StatusCompleted Status = "completed"
)

// Booking ties a student to a session seat.
type Booking struct {
	ID            uuid.UUID `json:"id"`
	StudentNumber string    `json:"student_number"`
	SessionID     uuid.UUID `json:"session_id"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewBooking(studentNumber string, sessionID uuid.UUID, now time.Time) *Booking {
	return &Booking{
		ID:            uuid.New(),
		StudentNumber: studentNumber,
		SessionID:     sessionID,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Cancel releases the seat. Only active bookings can be cancelled.
func (b *Booking) Cancel(now time.Time) error {
	if b.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeConflict, "cannot cancel a %s booking", b.Status)
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now
	return nil
}

// Complete marks the sitting as taken. Only active bookings complete.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeConflict, "cannot complete a %s booking", b.Status)
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now
	return nil
}

// Payment is a recorded payment against a booking.
type Payment struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	Provider    string    `json:"provider"`
	Reference   string    `json:"reference"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Result holds the three domain scores of a completed sitting.
type Result struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ScoreAL    int       `json:"score_al"`
	ScoreQL    int       `json:"score_ql"`
	ScoreMAT   int       `json:"score_mat"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewResult validates the score ranges.
func NewResult(bookingID uuid.UUID, al, ql, mat int, now time.Time) (Result, error) {
	for _, score := range []int{al, ql, mat} {
		if score < 0 || score > 100 {
			return Result{}, dErrors.New(dErrors.CodeValidation, "scores must be between 0 and 100")
		}
	}
	return Result{
		BookingID:  bookingID,
		ScoreAL:    al,
		ScoreQL:    ql,
		ScoreMAT:   mat,
		RecordedAt: now,
	}, nil
}
