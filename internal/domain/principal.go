package domain

import (
	"context"

	"github.com/google/uuid"
)

// Role is the caller's privilege level within a tenant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

var rolePriorities = map[Role]int{
	RoleAdmin:    10,
	RoleStandard: 1,
}

// Priority ranks roles for conflict resolution. Unknown roles rank zero.
func (r Role) Priority() int {
	return rolePriorities[r]
}

func (r Role) String() string {
	if r == "" {
		return "unknown"
	}
	return string(r)
}

// Principal is the authenticated caller, as supplied by the auth layer.
type Principal struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
	Email    string
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal stores the caller on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
