package auth

import (
	"context"

	"github.com/dmitrijs2005/worktrack/internal/server/models"
)

// Principal is the read-only identity attached to a request once its bearer
// token has been validated. It is derived from a models.User and never
// written back.
type Principal struct {
	UserID      int64
	Email       string
	Role        models.Role
	Authorities []string
}

// NewPrincipal derives the principal for u.
func NewPrincipal(u *models.User) Principal {
	return Principal{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		Authorities: []string{"ROLE_" + string(u.Role)},
	}
}

// HasRole reports whether the principal was granted role.
func (p Principal) HasRole(role models.Role) bool {
	want := "ROLE_" + string(role)
	for _, a := range p.Authorities {
		if a == want {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
