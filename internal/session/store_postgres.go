package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nbtbook/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectSession = `
	SELECT id, venue_id, room_id, starts_at, registration_opens_at,
		registration_closes_at, fee_cents, capacity, status, created_at, updated_at
	FROM sessions
`

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO sessions (id, venue_id, room_id, starts_at, registration_opens_at,
			registration_closes_at, fee_cents, capacity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.VenueID, sess.RoomID, sess.StartsAt, sess.RegistrationOpensAt,
		sess.RegistrationClosesAt, sess.FeeCents, sess.Capacity, string(sess.Status),
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return scanSession(s.db.QueryRowContext(ctx, selectSession+` WHERE id = $1`, id))
}

func (s *PostgresStore) ListUpcoming(ctx context.Context, now time.Time) ([]*Session, error) {
	query := selectSession + ` WHERE status = $1 AND starts_at >= $2 ORDER BY starts_at`
	rows, err := s.db.QueryContext(ctx, query, string(StatusScheduled), now)
	if err != nil {
		return nil, fmt.Errorf("list upcoming sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, sess *Session) error {
	query := `
		UPDATE sessions
		SET starts_at = $2, registration_opens_at = $3, registration_closes_at = $4,
			fee_cents = $5, capacity = $6, status = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.StartsAt, sess.RegistrationOpensAt, sess.RegistrationClosesAt,
		sess.FeeCents, sess.Capacity, string(sess.Status), sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type sessionRow interface {
	Scan(dest ...any) error
}

func scanSession(row sessionRow) (*Session, error) {
	var sess Session
	var status string
	err := row.Scan(&sess.ID, &sess.VenueID, &sess.RoomID, &sess.StartsAt,
		&sess.RegistrationOpensAt, &sess.RegistrationClosesAt, &sess.FeeCents,
		&sess.Capacity, &status, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = Status(status)
	return &sess, nil
}
