package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	dErrors "nbtbook/pkg/domain-errors"
	"nbtbook/pkg/identity"
	"nbtbook/pkg/platform/sentinel"
)

const pqUniqueViolation = "23505"

// PostgresStore persists students in PostgreSQL. The students table carries
// unique constraints on student_number and on (document_kind, document_value);
// both surface as sentinel.ErrConflict so the allocator and the service can
// tell a rival insert from an outage.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, st *Student) error {
	query := `
		INSERT INTO students (id, student_number, document_kind, document_value,
			first_name, last_name, email, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.StudentNumber.String(), string(st.Document.Kind), st.Document.Value,
		st.FirstName, st.LastName, st.Email, st.Active, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("student insert %s: %w", pqErr.Constraint, sentinel.ErrConflict)
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number string) (*Student, error) {
	query := selectStudent + ` WHERE student_number = $1`
	return scanStudent(s.db.QueryRowContext(ctx, query, number))
}

func (s *PostgresStore) FindByDocument(ctx context.Context, kind, value string) (*Student, error) {
	query := selectStudent + ` WHERE document_kind = $1 AND document_value = $2`
	return scanStudent(s.db.QueryRowContext(ctx, query, kind, value))
}

func (s *PostgresStore) Update(ctx context.Context, st *Student) error {
	query := `
		UPDATE students
		SET first_name = $2, last_name = $3, email = $4, active = $5, updated_at = $6
		WHERE student_number = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		st.StudentNumber.String(), st.FirstName, st.LastName, st.Email, st.Active, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// HighestStudentNumber relies on the fixed-width zero-padded format: max()
// over the year's numbers is the highest sequence.
func (s *PostgresStore) HighestStudentNumber(ctx context.Context, year int) (string, error) {
	query := `
		SELECT max(student_number)
		FROM students
		WHERE student_number LIKE $1
	`
	var highest sql.NullString
	if err := s.db.QueryRowContext(ctx, query, fmt.Sprintf("%04d%%", year)).Scan(&highest); err != nil {
		return "", fmt.Errorf("highest student number: %w", err)
	}
	if !highest.Valid {
		return "", sentinel.ErrNotFound
	}
	return highest.String, nil
}

const selectStudent = `
	SELECT id, student_number, document_kind, document_value,
		first_name, last_name, email, active, created_at, updated_at
	FROM students
`

type studentRow interface {
	Scan(dest ...any) error
}

func scanStudent(row studentRow) (*Student, error) {
	var st Student
	var number, docKind, docValue string
	err := row.Scan(&st.ID, &number, &docKind, &docValue,
		&st.FirstName, &st.LastName, &st.Email, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	parsed, err := identity.ParseStudentNumber(number)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persisted student number is invalid")
	}
	st.StudentNumber = parsed
	st.Document = identity.Document{Kind: identity.DocumentKind(docKind), Value: docValue}
	return &st, nil
}
