package student

import "context"

// Store persists students. Create must enforce uniqueness of both the
// student number and the identity document, surfacing violations as
// sentinel.ErrConflict; the student-number constraint is what makes
// cross-process allocation safe.
type Store interface {
	Create(ctx context.Context, s *Student) error
	FindByNumber(ctx context.Context, number string) (*Student, error)
	FindByDocument(ctx context.Context, kind, value string) (*Student, error)
	Update(ctx context.Context, s *Student) error

	// HighestStudentNumber serves the number allocator.
	HighestStudentNumber(ctx context.Context, year int) (string, error)
}
