// Package applications provides the PostgreSQL-backed store for users' job
// applications.
package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
)

// PostgresRepository implements application storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, company_name, position, status, applied_date, notes, resume_key, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.JobApplication, error) {
	var (
		item    models.JobApplication
		status  string
		applied sql.NullTime
		resume  sql.NullString
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.CompanyName, &item.Position, &status,
		&applied, &item.Notes, &resume, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Status = models.ApplicationStatus(status)
	if applied.Valid {
		d := applied.Time
		item.AppliedDate = &d
	}
	if resume.Valid {
		k := resume.String
		item.ResumeKey = &k
	}
	return &item, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts app and fills its ID and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, app *models.JobApplication) error {
	query := `
		INSERT INTO job_applications (user_id, company_name, position, status, applied_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		app.UserID, app.CompanyName, app.Position, string(app.Status), nullTime(app.AppliedDate), app.Notes,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the application or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.JobApplication, error) {
	query := `SELECT ` + selectColumns + ` FROM job_applications WHERE id = $1`

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return app, nil
}

// ListByUser returns userID's applications, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.JobApplication, error) {
	query := `SELECT ` + selectColumns + ` FROM job_applications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select applications: %w", err)
	}
	defer rows.Close()

	var result []*models.JobApplication
	for rows.Next() {
		item, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update overwrites the editable fields of app and stamps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, app *models.JobApplication) error {
	query := `
		UPDATE job_applications
		SET company_name = $2, position = $3, status = $4, applied_date = $5, notes = $6, updated_at = $7
		WHERE id = $1
	`
	return r.execOne(ctx, query,
		app.ID, app.CompanyName, app.Position, string(app.Status), nullTime(app.AppliedDate), app.Notes, app.UpdatedAt)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status models.ApplicationStatus, at time.Time) error {
	query := `
		UPDATE job_applications
		SET status = $2, updated_at = $3
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, string(status), at)
}

func (r *PostgresRepository) SetResumeKey(ctx context.Context, id int64, key string, at time.Time) error {
	query := `
		UPDATE job_applications
		SET resume_key = $2, updated_at = $3
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, key, at)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM job_applications WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
