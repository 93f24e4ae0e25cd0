package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
)

// TokenStore issues and checks single-use tokens of one purpose. The same
// type backs email confirmation, password reset and refresh tokens; only
// the purpose and TTL differ.
//
// Validate, Consume and Lookup take the handle to run on so callers can
// keep the locked row inside their own transaction.
type TokenStore struct {
	repomanager repomanager.RepositoryManager
	purpose     models.TokenPurpose
	ttl         time.Duration
	now         func() time.Time
}

func NewTokenStore(m repomanager.RepositoryManager, purpose models.TokenPurpose, ttl time.Duration) *TokenStore {
	return &TokenStore{repomanager: m, purpose: purpose, ttl: ttl, now: time.Now}
}

func (s *TokenStore) Purpose() models.TokenPurpose { return s.purpose }

func (s *TokenStore) TTL() time.Duration { return s.ttl }

// Create stores a fresh random token for userID and returns its value.
func (s *TokenStore) Create(ctx context.Context, db dbx.DBTX, userID int64) (string, error) {
	value, err := common.NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("error generating %s token: %w", s.purpose, err)
	}

	now := s.now()
	token := &models.SingleUseToken{
		Purpose:   s.purpose,
		Token:     value,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repomanager.Tokens(db).Create(ctx, token); err != nil {
		return "", fmt.Errorf("error saving %s token: %w", s.purpose, err)
	}
	return value, nil
}

// Lookup locks and returns the token row without judging it.
func (s *TokenStore) Lookup(ctx context.Context, db dbx.DBTX, value string) (*models.SingleUseToken, error) {
	token, err := s.repomanager.Tokens(db).FindForUpdate(ctx, s.purpose, value)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.purpose.NotFoundError()
		}
		return nil, fmt.Errorf("error searching %s token: %w", s.purpose, err)
	}
	return token, nil
}

// Validate returns the token row if it may still be used. Checks run in a
// fixed order: existence, then prior consumption, then expiry.
func (s *TokenStore) Validate(ctx context.Context, db dbx.DBTX, value string) (*models.SingleUseToken, error) {
	token, err := s.Lookup(ctx, db, value)
	if err != nil {
		return nil, err
	}
	if token.Consumed() {
		return nil, s.purpose.ConsumedError()
	}
	if token.Expired(s.now()) {
		return nil, common.ErrTokenExpired
	}
	return token, nil
}

// Consume marks token as used. A token consumed concurrently yields the
// purpose's consumed error.
func (s *TokenStore) Consume(ctx context.Context, db dbx.DBTX, token *models.SingleUseToken) error {
	now := s.now()
	if err := s.repomanager.Tokens(db).MarkConsumed(ctx, token.ID, now); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.purpose.ConsumedError()
		}
		return fmt.Errorf("error consuming %s token: %w", s.purpose, err)
	}
	token.ConsumedAt = &now
	return nil
}
