// Package db opens the PostgreSQL connection and ensures the schema exists.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

const (
	// DriverPQ selects github.com/lib/pq.
	DriverPQ = "postgres"
	// DriverPGX selects the database/sql adapter of github.com/jackc/pgx/v5.
	DriverPGX = "pgx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username VARCHAR(50) UNIQUE NOT NULL,
    email VARCHAR(100) UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    avatar_path TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS applications (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    company VARCHAR(255) NOT NULL,
    position VARCHAR(255) NOT NULL,
    status VARCHAR(50) NOT NULL DEFAULT 'Applied'
        CHECK (status IN ('Applied', 'Interview', 'Offer', 'Rejected')),
    applied_date DATE NOT NULL DEFAULT CURRENT_DATE,
    work_type VARCHAR(50) NOT NULL DEFAULT '',
    location VARCHAR(100) NOT NULL DEFAULT '',
    salary_min INTEGER,
    salary_max INTEGER,
    currency VARCHAR(10) NOT NULL DEFAULT 'EUR',
    link TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    recruiter_name VARCHAR(100) NOT NULL DEFAULT '',
    recruiter_email VARCHAR(100) NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    cv_path TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS applications_user_created_idx
    ON applications (user_id, created_at DESC);
`

// InitPostgres opens a connection with the given driver ("postgres" or
// "pgx"), verifies it and creates the schema.
func InitPostgres(driver, dsn string) (*sql.DB, error) {
	if driver == "" {
		driver = DriverPQ
	}
	if driver != DriverPQ && driver != DriverPGX {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
