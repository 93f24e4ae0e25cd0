// Package services contains server-side business logic: the authentication
// flows, user profile management and job application tracking.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/logging"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/config"
	"github.com/dmitrijs2005/worktrack/internal/server/mail"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

const (
	RegisteredMessage = "User registered. Please check your email to confirm"
	ConfirmedMessage  = "Confirmed"

	ConfirmPath       = "/api/v1/auth/confirm"
	ResetPasswordPath = "/api/v1/auth/reset-password"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService runs the account lifecycle: registration and email
// confirmation, login, refresh and logout, and password recovery.
type AuthService struct {
	db            dbx.Conn
	repomanager   repomanager.RepositoryManager
	codec         *auth.Codec
	hasher        *auth.PasswordHasher
	mailer        mail.Sender
	confirmations *TokenStore
	resets        *TokenStore
	refreshes     *TokenStore
	baseURL       string
	rotateRefresh bool
	policy        PasswordPolicy
	log           logging.Logger
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db dbx.Conn, m repomanager.RepositoryManager, codec *auth.Codec, mailer mail.Sender,
	cfg *config.Config, log logging.Logger) *AuthService {
	return &AuthService{
		db:            db,
		repomanager:   m,
		codec:         codec,
		hasher:        auth.NewPasswordHasher(bcrypt.DefaultCost),
		mailer:        mailer,
		confirmations: NewTokenStore(m, models.PurposeEmailConfirmation, cfg.ConfirmationTokenValidityDuration),
		resets:        NewTokenStore(m, models.PurposePasswordReset, cfg.PasswordResetTokenValidityDuration),
		refreshes:     NewTokenStore(m, models.PurposeRefresh, cfg.RefreshTokenValidityDuration),
		baseURL:       strings.TrimRight(cfg.PublicBaseURL, "/"),
		rotateRefresh: cfg.RotateRefreshTokens,
		policy:        PasswordPolicy{Strict: cfg.StrictPasswords},
		log:           log,
	}
}

func (s *AuthService) link(path, token string) string {
	return s.baseURL + path + "?token=" + url.QueryEscape(token)
}

// Register creates a disabled USER account and emails a confirmation link.
// An already registered email is reported before any input problem. The
// account, its token and the email form one unit: if the email cannot be
// sent nothing is persisted.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		_, err := users.GetByEmail(ctx, in.Email)
		if err == nil {
			return common.ErrEmailAlreadyRegistered
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("error searching user: %w", err)
		}

		if err := in.Validate(); err != nil {
			return err
		}
		if err := s.policy.Check(in.Password); err != nil {
			return err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return err
		}

		user, err := users.Create(ctx, &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			DisplayName:  in.DisplayName,
			Role:         models.RoleUser,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrEmailAlreadyRegistered
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		token, err := s.confirmations.Create(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		body, err := mail.RenderConfirmation(user.DisplayName, s.link(ConfirmPath, token), s.confirmations.TTL())
		if err != nil {
			return err
		}
		if err := s.mailer.Send(ctx, user.Email, mail.ConfirmationSubject, body); err != nil {
			return fmt.Errorf("error sending confirmation email: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "user registered", "email", in.Email)
	return RegisteredMessage, nil
}

// ConfirmToken consumes an email confirmation token and enables its owner.
func (s *AuthService) ConfirmToken(ctx context.Context, value string) (string, error) {
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.confirmations.Validate(ctx, tx, value)
		if err != nil {
			return err
		}
		if err := s.confirmations.Consume(ctx, tx, token); err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).Enable(ctx, token.UserID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error enabling user: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ConfirmedMessage, nil
}

// Login checks credentials and returns a fresh access token plus a new
// refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, common.ErrEmailNotConfirmed
	}

	access, err := s.codec.Issue(user.Email)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	refresh, err := s.refreshes.Create(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshToken trades a valid refresh token for a new access token. The
// refresh token itself is returned unchanged unless rotation is enabled, in
// which case it is consumed and replaced.
func (s *AuthService) RefreshToken(ctx context.Context, value string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.refreshes.Validate(ctx, tx, value)
		if err != nil {
			return err
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		access, err := s.codec.Issue(user.Email)
		if err != nil {
			return fmt.Errorf("error issuing access token: %w", err)
		}

		refresh := value
		if s.rotateRefresh {
			if err := s.refreshes.Consume(ctx, tx, token); err != nil {
				return err
			}
			if refresh, err = s.refreshes.Create(ctx, tx, user.ID); err != nil {
				return err
			}
		}

		pair = &TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes a refresh token. Revoking an already revoked token is a no-op.
func (s *AuthService) Logout(ctx context.Context, value string) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.refreshes.Lookup(ctx, tx, value)
		if err != nil {
			return err
		}
		if token.Consumed() {
			return nil
		}
		return s.refreshes.Consume(ctx, tx, token)
	})
}

// ForgotPassword emails a password reset link to the owner of email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.resets.Create(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		body, err := mail.RenderPasswordReset(user.DisplayName, s.link(ResetPasswordPath, token), s.resets.TTL())
		if err != nil {
			return err
		}
		if err := s.mailer.Send(ctx, user.Email, mail.PasswordResetSubject, body); err != nil {
			return fmt.Errorf("error sending password reset email: %w", err)
		}
		return nil
	})
}

// ResetPassword sets a new password for the owner of a valid reset token
// and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, value, newPassword string) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.resets.Validate(ctx, tx, value)
		if err != nil {
			return err
		}
		if err := s.policy.Check(newPassword); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, token.UserID, hash); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error updating password: %w", err)
		}

		return s.resets.Consume(ctx, tx, token)
	})
}
