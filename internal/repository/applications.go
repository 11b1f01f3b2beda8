// Package repository provides PostgreSQL persistence for users and job applications.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/JobTracker/internal/models"
)

const applicationColumns = `id, user_id, company, position, status, applied_date, work_type, location,
	salary_min, salary_max, currency, link, description, recruiter_name, recruiter_email,
	notes, cv_path, created_at, updated_at`

// PostgresApplicationRepository stores job applications in PostgreSQL.
type PostgresApplicationRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresApplicationRepository creates a repository over db.
func NewPostgresApplicationRepository(db *sql.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app    models.Application
		lo, hi sql.NullInt64
	)
	err := row.Scan(
		&app.ID, &app.UserID, &app.Company, &app.Position, &app.Status, &app.AppliedDate,
		&app.WorkType, &app.Location, &lo, &hi, &app.Currency, &app.Link, &app.Description,
		&app.RecruiterName, &app.RecruiterEmail, &app.Notes, &app.CVPath, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lo.Valid {
		app.SalaryMin = &lo.Int64
	}
	if hi.Valid {
		app.SalaryMax = &hi.Int64
	}
	return &app, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// ListByOwner returns the user's applications, newest first. An owner with
// no applications gets an empty, non-nil slice.
func (r *PostgresApplicationRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Application, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	defer rows.Close()

	apps := make([]models.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	return apps, nil
}

// GetByID fetches one application owned by userID.
func (r *PostgresApplicationRepository) GetByID(ctx context.Context, userID, id int64) (*models.Application, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return app, nil
}

// Create inserts a normalised application for userID and returns the stored row.
func (r *PostgresApplicationRepository) Create(ctx context.Context, userID int64, n models.NewApplication) (*models.Application, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO applications (
			user_id, company, position, status, applied_date, work_type, location,
			salary_min, salary_max, currency, link, description,
			recruiter_name, recruiter_email, notes, cv_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+applicationColumns,
		userID, n.Company, n.Position, n.Status, n.AppliedDate, n.WorkType, n.Location,
		nullInt(n.SalaryMin), nullInt(n.SalaryMax), n.Currency, n.Link, n.Description,
		n.RecruiterName, n.RecruiterEmail, n.Notes, n.CVPath,
	)
	app, err := scanApplication(row)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return app, nil
}

// UpdateFields writes only the supplied fields of patch in a single
// statement and returns the row as persisted. There is no version check, so
// concurrent writers resolve as last write wins. A salary bound is only
// written if the resulting range is ordered; the check is part of the same
// statement.
func (r *PostgresApplicationRepository) UpdateFields(ctx context.Context, userID, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	sets, args, guard := patchAssignments(patch)
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrValidation)
	}

	args = append(args, id, userID)
	query := fmt.Sprintf(
		"UPDATE applications SET %s, updated_at = NOW() WHERE id = $%d AND user_id = $%d%s RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), guard, applicationColumns,
	)

	app, err := scanApplication(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if guard != "" {
			return nil, r.classifyMiss(ctx, userID, id)
		}
		return nil, fmt.Errorf("application %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("UpdateFields: %w", err)
	}
	return app, nil
}

// classifyMiss tells a missing row from one rejected by the salary guard.
func (r *PostgresApplicationRepository) classifyMiss(ctx context.Context, userID, id int64) error {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1 AND user_id = $2)`, id, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("UpdateFields: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: salary_min exceeds salary_max", models.ErrValidation)
	}
	return fmt.Errorf("application %d: %w", id, models.ErrNotFound)
}

// patchAssignments renders the SET list in a fixed column order, plus a
// WHERE guard keeping salary_min <= salary_max when a bound is written.
func patchAssignments(p models.ApplicationPatch) (sets []string, args []any, guard string) {
	lo, hi := "salary_min", "salary_max"
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	addString := func(col string, v *string) {
		if v != nil {
			add(col, *v)
		}
	}

	addString("company", p.Company)
	addString("position", p.Position)
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.AppliedDate != nil {
		add("applied_date", *p.AppliedDate)
	}
	addString("work_type", p.WorkType)
	addString("location", p.Location)
	switch {
	case p.SalaryMin != nil:
		add("salary_min", *p.SalaryMin)
		lo = fmt.Sprintf("$%d::bigint", len(args))
	case p.ClearSalaryMin:
		sets = append(sets, "salary_min = NULL")
		lo = ""
	}
	switch {
	case p.SalaryMax != nil:
		add("salary_max", *p.SalaryMax)
		hi = fmt.Sprintf("$%d::bigint", len(args))
	case p.ClearSalaryMax:
		sets = append(sets, "salary_max = NULL")
		hi = ""
	}
	addString("currency", p.Currency)
	addString("link", p.Link)
	addString("description", p.Description)
	addString("recruiter_name", p.RecruiterName)
	addString("recruiter_email", p.RecruiterEmail)
	addString("notes", p.Notes)
	addString("cv_path", p.CVPath)

	if (p.SalaryMin != nil || p.SalaryMax != nil) && lo != "" && hi != "" {
		guard = fmt.Sprintf(" AND (%[1]s IS NULL OR %[2]s IS NULL OR %[1]s <= %[2]s)", lo, hi)
	}
	return sets, args, guard
}

// Delete removes one application owned by userID.
func (r *PostgresApplicationRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("application %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// CountByStatus returns the number of the user's applications per status.
func (r *PostgresApplicationRepository) CountByStatus(ctx context.Context, userID int64) (map[models.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM applications WHERE user_id = $1 GROUP BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("CountByStatus: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status models.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
