package venue

import (
	"context"

	"github.com/google/uuid"
)

// Store persists venues and rooms. FindByID returns the venue with its rooms
// loaded. Name uniqueness violations surface as sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, v *Venue) error
	FindByID(ctx context.Context, id uuid.UUID) (*Venue, error)
	List(ctx context.Context) ([]*Venue, error)
	Update(ctx context.Context, v *Venue) error
	AddRoom(ctx context.Context, room Room) error
}
