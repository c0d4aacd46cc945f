package venue

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

// PostgresStore persists venues and rooms in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *Venue) error {
	query := `
		INSERT INTO venues (id, name, city, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query, v.ID, v.Name, v.City, v.Address, v.Active, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("venue name taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create venue: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	query := `
		SELECT id, name, city, address, active, created_at, updated_at
		FROM venues
		WHERE id = $1
	`
	var v Venue
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.City, &v.Address, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find venue: %w", err)
	}
	rooms, err := s.roomsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Rooms = rooms
	return &v, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Venue, error) {
	query := `
		SELECT id, name, city, address, active, created_at, updated_at
		FROM venues
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var out []*Venue
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.City, &v.Address, &v.Active, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, v := range out {
		rooms, err := s.roomsFor(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		v.Rooms = rooms
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, v *Venue) error {
	query := `
		UPDATE venues
		SET name = $2, city = $3, address = $4, active = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, v.ID, v.Name, v.City, v.Address, v.Active, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update venue rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddRoom(ctx context.Context, room Room) error {
	query := `
		INSERT INTO rooms (id, venue_id, name, capacity)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, room.ID, room.VenueID, room.Name, room.Capacity)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return fmt.Errorf("room name taken: %w", sentinel.ErrConflict)
			case "23503": // foreign key violation, venue missing
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("add room: %w", err)
	}
	return nil
}

func (s *PostgresStore) roomsFor(ctx context.Context, venueID uuid.UUID) ([]Room, error) {
	query := `
		SELECT id, venue_id, name, capacity
		FROM rooms
		WHERE venue_id = $1
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.VenueID, &r.Name, &r.Capacity); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}
