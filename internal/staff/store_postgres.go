package staff

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nbtbook/pkg/platform/sentinel"
)

const pqUniqueViolation = "23505"

// PostgresStore persists staff accounts in PostgreSQL. The staff table has a
// unique index on lower(email); violations surface as sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, st *Staff) error {
	query := `
		INSERT INTO staff (id, email, full_name, role, password_hash, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.Email, st.FullName, string(st.Role), st.PasswordHash, st.Active, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("staff email taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Staff, error) {
	query := `
		SELECT id, email, full_name, role, password_hash, active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`
	return scanStaff(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Staff, error) {
	query := `
		SELECT id, email, full_name, role, password_hash, active, created_at, updated_at
		FROM staff
		WHERE lower(email) = lower($1)
	`
	return scanStaff(s.db.QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) Update(ctx context.Context, st *Staff) error {
	query := `
		UPDATE staff
		SET full_name = $2, role = $3, password_hash = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		st.ID, st.FullName, string(st.Role), st.PasswordHash, st.Active, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update staff rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Staff, error) {
	query := `
		SELECT id, email, full_name, role, password_hash, active, created_at, updated_at
		FROM staff
		ORDER BY email
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []*Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type staffRow interface {
	Scan(dest ...any) error
}

func scanStaff(row staffRow) (*Staff, error) {
	var st Staff
	var role string
	err := row.Scan(&st.ID, &st.Email, &st.FullName, &role, &st.PasswordHash, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan staff: %w", err)
	}
	st.Role = Role(role)
	return &st, nil
}
