package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// ListUpcoming returns scheduled sessions starting at or after now,
	// soonest first.
	ListUpcoming(ctx context.Context, now time.Time) ([]*Session, error)
	Update(ctx context.Context, s *Session) error
}
