package auth

import (
	"fmt"

	"github.com/dmitrijs2005/worktrack/internal/common"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

// PasswordMinEntropyBits is the minimum strength accepted for new passwords.
const PasswordMinEntropyBits = 50

// PasswordHasher hashes with bcrypt at a fixed cost. bcrypt salts every call.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(b), nil
}

// Matches reports whether password hashes to hash. A malformed hash is
// treated as a mismatch.
func (h *PasswordHasher) Matches(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckStrength rejects passwords below PasswordMinEntropyBits with an
// error wrapping common.ErrWeakPassword.
func CheckStrength(password string) error {
	if err := passwordvalidator.Validate(password, PasswordMinEntropyBits); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWeakPassword, err)
	}
	return nil
}
