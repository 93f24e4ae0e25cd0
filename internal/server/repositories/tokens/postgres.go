// Package tokens provides a PostgreSQL-backed repository for the single-use
// tokens used in the server's authentication flow.
package tokens

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

// PostgresRepository implements token storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new token. A duplicate (purpose, token) pair yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, token *models.SingleUseToken) error {
	query := `
		INSERT INTO single_use_tokens (purpose, token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		string(token.Purpose), token.Token, token.UserID, token.CreatedAt, token.ExpiresAt).Scan(&token.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// FindForUpdate returns the token row and holds a row lock on it. Outside a
// transaction the lock is released immediately.
func (r *PostgresRepository) FindForUpdate(ctx context.Context, purpose models.TokenPurpose, token string) (*models.SingleUseToken, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, consumed_at
		FROM single_use_tokens
		WHERE purpose = $1 AND token = $2
		FOR UPDATE
	`
	t := &models.SingleUseToken{Purpose: purpose, Token: token}
	var consumed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, string(purpose), token).
		Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.ExpiresAt, &consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if consumed.Valid {
		at := consumed.Time
		t.ConsumedAt = &at
	}
	return t, nil
}

// MarkConsumed stamps consumed_at on the token with the given id.
func (r *PostgresRepository) MarkConsumed(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE single_use_tokens
		SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
