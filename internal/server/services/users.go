package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/dmitrijs2005/worktrack/internal/dbx"
	"github.com/dmitrijs2005/worktrack/internal/server/auth"
	"github.com/dmitrijs2005/worktrack/internal/server/models"
	"github.com/dmitrijs2005/worktrack/internal/server/repositories/repomanager"
	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// UserService serves the authenticated user's own account and the admin
// user listing.
type UserService struct {
	db          dbx.Conn
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	policy      PasswordPolicy
}

func NewUserService(db dbx.Conn, m repomanager.RepositoryManager, policy PasswordPolicy) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewPasswordHasher(bcrypt.DefaultCost),
		policy:      policy,
	}
}

func userLookupError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrUserNotFound
	}
	return fmt.Errorf("error searching user: %w", err)
}

// UserByEmail resolves the account a bearer token names.
func (s *UserService) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, p auth.Principal) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, p.UserID)
	if err != nil {
		return nil, userLookupError(err)
	}
	return user, nil
}

// UpdateProfile changes the display name and returns the updated account.
func (s *UserService) UpdateProfile(ctx context.Context, p auth.Principal, displayName string) (*models.User, error) {
	if err := validation.Validate(displayName, displayNameRules...); err != nil {
		return nil, invalid(fmt.Errorf("name: %w", err))
	}

	var user *models.User
	err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if err := users.UpdateDisplayName(ctx, p.UserID, displayName); err != nil {
			return userLookupError(err)
		}
		var err error
		if user, err = users.GetByID(ctx, p.UserID); err != nil {
			return userLookupError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after re-checking the current one.
// A wrong current password is reported before any problem with the new one.
func (s *UserService) ChangePassword(ctx context.Context, p auth.Principal, current, newPassword string) error {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, p.UserID)
	if err != nil {
		return userLookupError(err)
	}
	if !s.hasher.Matches(user.PasswordHash, current) {
		return common.ErrIncorrectPassword
	}
	if err := s.policy.Check(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return userLookupError(err)
	}
	return nil
}

// ListUsers returns every account. Callers must hold the ADMIN role.
func (s *UserService) ListUsers(ctx context.Context, p auth.Principal) ([]*models.User, error) {
	if !p.HasRole(models.RoleAdmin) {
		return nil, common.ErrForbidden
	}
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return list, nil
}

// CreateAdmin provisions an enabled, verified ADMIN account without the
// email confirmation round trip. Admin passwords always get the strict policy.
func (s *UserService) CreateAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := adminPolicy.Check(in.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		DisplayName:  in.DisplayName,
		Role:         models.RoleAdmin,
		Verified:     true,
		Enabled:      true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}
