package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizhub-io/bizhub/internal/roles"
)

// Principal describes the authenticated actor of a request, resolved from
// current storage state.
type Principal struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	GivenName  string     `json:"givenName"`
	FamilyName string     `json:"familyName"`
	Role       *roles.Ref `json:"role"`
}

// RoleName returns the principal's role name or "" without a live role.
func (p *Principal) RoleName() roles.Name {
	if p == nil || p.Role == nil {
		return ""
	}
	return p.Role.Name
}

// Has reports whether the principal's live role grants perm.
func (p *Principal) Has(perm roles.Permission) bool {
	return p != nil && p.Role != nil && p.Role.Has(perm)
}

type principalKey struct{}

// WithPrincipal stores the principal in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal set by the identity gate.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
