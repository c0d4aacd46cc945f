package staff

import "context"

// Store persists staff accounts. Implementations return
// sentinel.ErrNotFound for missing accounts and sentinel.ErrConflict when a
// unique constraint on the email is violated.
type Store interface {
	Create(ctx context.Context, s *Staff) error
	FindByID(ctx context.Context, id string) (*Staff, error)
	FindByEmail(ctx context.Context, email string) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	List(ctx context.Context) ([]*Staff, error)
}
