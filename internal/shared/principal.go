package shared

import "context"

// Role names form a closed set. Authorization is exact set membership:
// there is no ordering between roles.
const (
	RoleBasic   = "basic"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// KnownRole reports whether name belongs to the closed role set.
func KnownRole(name string) bool {
	switch name {
	case RoleBasic, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Principal describes the authenticated actor for the duration of a request.
type Principal struct {
	ID                 int64
	Email              string
	Role               string
	Division           string
	SpendingLimitCents int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
