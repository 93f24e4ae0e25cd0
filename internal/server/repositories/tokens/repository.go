// Package tokens declares the server-side repository contract for
// single-use tokens (email confirmation, password reset and refresh).
package tokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/server/models"
)

// Repository stores single-use tokens. Every lookup is scoped to a purpose.
type Repository interface {
	// Create persists token and fills its ID.
	Create(ctx context.Context, token *models.SingleUseToken) error

	// FindForUpdate returns the token row matching purpose and value exactly,
	// locking it for the rest of the enclosing transaction. Implementations
	// return common.ErrorNotFound when the token is absent.
	FindForUpdate(ctx context.Context, purpose models.TokenPurpose, token string) (*models.SingleUseToken, error)

	// MarkConsumed sets consumed_at on an unconsumed token. A token that is
	// missing or already consumed yields common.ErrorNotFound.
	MarkConsumed(ctx context.Context, id int64, at time.Time) error
}
