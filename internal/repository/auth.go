package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/JobTracker/internal/models"
)

const userColumns = `id, username, email, password_hash, avatar_path, created_at`

// PostgresAuthRepository implements user persistence using a PostgreSQL database.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u    models.User
		hash string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &u.AvatarPath, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = []byte(hash)
	return &u, nil
}

// CreateUser inserts u and fills in its ID and CreatedAt.
// A taken username or email yields models.ErrUserExists.
func (s *PostgresAuthRepository) CreateUser(ctx context.Context, u *models.User) error {
	err := s.DB.QueryRowContext(
		ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		u.Username, u.Email, string(u.PasswordHash),
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up by login email.
func (s *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", email, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	return u, nil
}

// GetUserByID looks a user up by primary key.
func (s *PostgresAuthRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of patch; COALESCE keeps the rest.
func (s *PostgresAuthRepository) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	var hash sql.NullString
	if len(patch.PasswordHash) > 0 {
		hash = sql.NullString{String: string(patch.PasswordHash), Valid: true}
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx, `
		UPDATE users SET
			username = COALESCE($1, username),
			email = COALESCE($2, email),
			password_hash = COALESCE($3, password_hash)
		WHERE id = $4
		RETURNING `+userColumns,
		nullString(patch.Username), nullString(patch.Email), hash, id,
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	case isUniqueViolation(err):
		return nil, models.ErrUserExists
	case err != nil:
		return nil, fmt.Errorf("UpdateUser: %w", err)
	}
	return u, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
