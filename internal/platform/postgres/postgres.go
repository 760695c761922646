// Package postgres opens the database handle and bootstraps the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// schema is the full DDL. Soft deletes keep rows around, so every uniqueness
// guarantee is a partial index scoped to live rows: a deleted account frees
// its email and google id for re-registration without losing history.
const schema = `
CREATE TABLE IF NOT EXISTS authentication (
	id                 UUID PRIMARY KEY,
	email_encrypted    TEXT NOT NULL,
	email_blind_index  CHAR(64) NOT NULL,
	password_hash      TEXT,
	refresh_token_hash TEXT,
	google_id          TEXT,
	role               TEXT NOT NULL DEFAULT 'user',
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	deleted_at         TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS authentication_email_blind_index_live
	ON authentication (email_blind_index) WHERE deleted_at IS NULL;

CREATE UNIQUE INDEX IF NOT EXISTS authentication_google_id_live
	ON authentication (google_id) WHERE deleted_at IS NULL AND google_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS authentication_role_live
	ON authentication (role) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS profile (
	id         UUID PRIMARY KEY,
	auth_id    UUID NOT NULL,
	name       TEXT NOT NULL,
	lastname   TEXT NOT NULL DEFAULT '',
	age        INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS profile_auth_id_live
	ON profile (auth_id) WHERE deleted_at IS NULL;
`

// EnsureSchema creates the tables and indexes when absent. Safe to run on
// every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
