package auth

import (
	"context"

	"github.com/google/uuid"
)

// Principal identifies the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// WithPrincipal stores the authenticated principal in context for middleware
// chain access.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal from context.
// Returns nil if none was previously stored.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
