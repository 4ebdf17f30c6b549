// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// New wraps an existing connection pool without migrating.
func New(s *sql.DB) *DB {
	return &DB{sql: s}
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := &DB{sql: s}
	if err := d.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK(kind IN ('local','federated')),
		username TEXT,
		password_hash TEXT,
		google_id TEXT,
		email TEXT,
		display_name TEXT,
		profile_picture_url TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username) WHERE kind = 'local';",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_google_id ON users(google_id) WHERE kind = 'federated';",
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		activity_content TEXT NOT NULL,
		category_id TEXT NOT NULL,
		fatigue_level INTEGER NOT NULL CHECK(fatigue_level BETWEEN 0 AND 5),
		fatigue_notes TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_activities_user_start ON activities(user_id, start_time);",
	`CREATE TABLE IF NOT EXISTS weekly_reflections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		week_start_date DATE NOT NULL,
		reflection_notes TEXT,
		title TEXT,
		questions JSONB NOT NULL DEFAULT '[]',
		anxieties TEXT,
		good_things TEXT,
		ai_diagnosis_result TEXT,
		weekly_total_load_points DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, week_start_date)
	);`,
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
