package models

import (
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
)

// TokenPurpose tags a single-use token with what it grants. Each purpose
// lives in the same table but lookups never cross purposes.
type TokenPurpose string

const (
	PurposeEmailConfirmation TokenPurpose = "email_confirmation"
	PurposePasswordReset     TokenPurpose = "password_reset"
	PurposeRefresh           TokenPurpose = "refresh"
)

// NotFoundError is returned when no token of this purpose matches.
func (p TokenPurpose) NotFoundError() error {
	if p == PurposeRefresh {
		return common.ErrInvalidRefreshToken
	}
	return common.ErrTokenNotFound
}

// ConsumedError is returned when a token of this purpose is presented again.
func (p TokenPurpose) ConsumedError() error {
	if p == PurposeEmailConfirmation {
		return common.ErrAlreadyConfirmed
	}
	return common.ErrTokenAlreadyUsed
}

// SingleUseToken is a random, expiring, one-time credential linked to a user.
// ConsumedAt doubles as confirmed_at for email confirmation and as the used
// flag for password reset and refresh tokens.
type SingleUseToken struct {
	ID         int64
	Purpose    TokenPurpose
	Token      string
	UserID     int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

func (t *SingleUseToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether now is past the token's expiry.
func (t *SingleUseToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
