// Package auth holds the bearer-token codec, password hashing and the
// per-request principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/worktrack/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "worktrack"

// Codec issues and verifies HS256 bearer tokens whose subject is the user's email.
type Codec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewCodec returns a Codec signing with secret. The secret must be at least
// minSecretLength bytes long.
func NewCodec(secret []byte, validity time.Duration, minSecretLength int) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("signing secret too short: %d < %d bytes", len(secret), minSecretLength)
	}
	if validity <= 0 {
		return nil, errors.New("token validity must be positive")
	}
	return &Codec{secret: secret, validity: validity, now: time.Now}, nil
}

// Issue returns a signed token for subject, valid from now for the codec's
// validity duration.
func (c *Codec) Issue(subject string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
	})

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ExtractSubject verifies the signature and structure of tokenString and
// returns its subject. Expiry is not checked here; a forged, malformed or
// unparsable token yields an error wrapping common.ErrInvalidToken.
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether tokenString carries expectedSubject and has not
// expired. It never returns an error: every failure is simply false.
func (c *Codec) IsValid(tokenString, expectedSubject string) bool {
	claims, err := c.parse(tokenString)
	if err != nil {
		return false
	}
	if claims.Subject != expectedSubject {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return c.now().Before(claims.ExpiresAt.Time)
}

func (c *Codec) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
