// Package postgres opens the shared database handle and owns the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects, configures the pool and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS staff (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	full_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS staff_email_unique ON staff (lower(email));

CREATE TABLE IF NOT EXISTS students (
	id             UUID PRIMARY KEY,
	student_number TEXT NOT NULL,
	document_kind  TEXT NOT NULL,
	document_value TEXT NOT NULL,
	first_name     TEXT NOT NULL,
	last_name      TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	active         BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	CONSTRAINT students_number_unique UNIQUE (student_number),
	CONSTRAINT students_document_unique UNIQUE (document_kind, document_value)
);

CREATE TABLE IF NOT EXISTS venues (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	city       TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT venues_name_unique UNIQUE (name)
);

CREATE TABLE IF NOT EXISTS rooms (
	id       UUID PRIMARY KEY,
	venue_id UUID NOT NULL REFERENCES venues (id),
	name     TEXT NOT NULL,
	capacity INTEGER NOT NULL,
	CONSTRAINT rooms_venue_name_unique UNIQUE (venue_id, name)
);

CREATE TABLE IF NOT EXISTS sessions (
	id                     UUID PRIMARY KEY,
	venue_id               UUID NOT NULL REFERENCES venues (id),
	room_id                UUID NOT NULL REFERENCES rooms (id),
	starts_at              TIMESTAMPTZ NOT NULL,
	registration_opens_at  TIMESTAMPTZ NOT NULL,
	registration_closes_at TIMESTAMPTZ NOT NULL,
	fee_cents              BIGINT NOT NULL,
	capacity               INTEGER NOT NULL,
	status                 TEXT NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id             UUID PRIMARY KEY,
	student_number TEXT NOT NULL REFERENCES students (student_number),
	session_id     UUID NOT NULL REFERENCES sessions (id),
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS bookings_student_idx ON bookings (student_number);
CREATE INDEX IF NOT EXISTS bookings_session_idx ON bookings (session_id);

CREATE TABLE IF NOT EXISTS payments (
	id           UUID PRIMARY KEY,
	booking_id   UUID NOT NULL REFERENCES bookings (id),
	amount_cents BIGINT NOT NULL,
	provider     TEXT NOT NULL,
	reference    TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL,
	CONSTRAINT payments_reference_unique UNIQUE (provider, reference)
);

CREATE TABLE IF NOT EXISTS results (
	booking_id  UUID PRIMARY KEY REFERENCES bookings (id),
	score_al    INTEGER NOT NULL,
	score_ql    INTEGER NOT NULL,
	score_mat   INTEGER NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
`
