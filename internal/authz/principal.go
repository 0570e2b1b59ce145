// Package authz resolves a request principal's role and workspace scope.
package authz

import (
	"context"
)

// Role is the effective authorization role of a principal. Employee records
// take precedence over the admin flag, which takes precedence over plain
// authenticated users.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleAgent     Role = "agent"
	RoleTeamLead  Role = "team_lead"
)

// Principal is the authenticated caller of a request. The zero value is an
// anonymous principal.
type Principal struct {
	UserID        string
	Name          string
	Authenticated bool
	Admin         bool
}

type principalContextKey struct{}

// WithPrincipal attaches the principal to the request context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the principal from the request context.
// Returns an anonymous principal when none is attached.
func PrincipalFromContext(ctx context.Context) Principal {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok {
		return Principal{}
	}

	return principal
}
