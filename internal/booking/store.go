package booking

import (
	"context"

	"github.com/google/uuid"
)

// Store persists bookings, payments and results. Duplicate payments (same
// provider and reference) and duplicate results surface as
// sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListByStudent(ctx context.Context, studentNumber string) ([]*Booking, error)
	Update(ctx context.Context, b *Booking) error
	CountActiveBySession(ctx context.Context, sessionID uuid.UUID) (int, error)

	RecordPayment(ctx context.Context, p Payment) error
	PaymentsFor(ctx context.Context, bookingID uuid.UUID) ([]Payment, error)

	RecordResult(ctx context.Context, r Result) error
	ResultFor(ctx context.Context, bookingID uuid.UUID) (*Result, error)
}
