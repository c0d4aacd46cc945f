package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"nbtbook/pkg/platform/sentinel"
)

const pqUniqueViolation = "23505"

// PostgresStore persists bookings, payments and results in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectBooking = `
	SELECT id, student_number, session_id, status, created_at, updated_at
	FROM bookings
`

func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (id, student_number, session_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.StudentNumber, b.SessionID, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return scanBooking(s.db.QueryRowContext(ctx, selectBooking+` WHERE id = $1`, id))
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentNumber string) ([]*Booking, error) {
	query := selectBooking + ` WHERE student_number = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, studentNumber)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, b.ID, string(b.Status), b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountActiveBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query := `SELECT count(*) FROM bookings WHERE session_id = $1 AND status = $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, sessionID, string(StatusActive)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) RecordPayment(ctx context.Context, p Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount_cents, provider, reference, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.BookingID, p.AmountCents, p.Provider, p.Reference, p.RecordedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return fmt.Errorf("payment reference already recorded: %w", sentinel.ErrConflict)
			case "23503":
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) PaymentsFor(ctx context.Context, bookingID uuid.UUID) ([]Payment, error) {
	query := `
		SELECT id, booking_id, amount_cents, provider, reference, recorded_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY recorded_at
	`
	rows, err := s.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Provider, &p.Reference, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) RecordResult(ctx context.Context, r Result) error {
	query := `
		INSERT INTO results (booking_id, score_al, score_ql, score_mat, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, r.BookingID, r.ScoreAL, r.ScoreQL, r.ScoreMAT, r.RecordedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return fmt.Errorf("result already recorded: %w", sentinel.ErrConflict)
			case "23503":
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResultFor(ctx context.Context, bookingID uuid.UUID) (*Result, error) {
	query := `
		SELECT booking_id, score_al, score_ql, score_mat, recorded_at
		FROM results
		WHERE booking_id = $1
	`
	var r Result
	err := s.db.QueryRowContext(ctx, query, bookingID).Scan(&r.BookingID, &r.ScoreAL, &r.ScoreQL, &r.ScoreMAT, &r.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find result: %w", err)
	}
	return &r, nil
}

type bookingRow interface {
	Scan(dest ...any) error
}

func scanBooking(row bookingRow) (*Booking, error) {
	var b Booking
	var status string
	err := row.Scan(&b.ID, &b.StudentNumber, &b.SessionID, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	b.Status = Status(status)
	return &b, nil
}
