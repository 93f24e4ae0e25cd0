// Package common defines shared constants and sentinel errors used across
// worktrack layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrValidation             = errors.New("validation error")
	ErrWeakPassword           = errors.New("password is not strong enough")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("incorrect password")
	ErrIncorrectPassword      = errors.New("current password is incorrect")
	ErrEmailNotConfirmed      = errors.New("email not confirmed, please confirm your email")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")

	// Lookup errors.
	ErrUserNotFound        = errors.New("user not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrApplicationNotFound = errors.New("job application not found")
	ErrNoResume            = errors.New("no resume uploaded")

	// Access errors.
	ErrForbidden = errors.New("forbidden")

	// Bearer token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Single-use token lifecycle errors.
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
	ErrAlreadyConfirmed = errors.New("email already confirmed")
)
