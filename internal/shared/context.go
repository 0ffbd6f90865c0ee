package shared

import "context"

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	ID       int64
	Email    string
	RoleName string
	// Token is the raw bearer token the principal presented, kept so
	// logout can revoke exactly what was verified.
	Token string
}

// GetRoleName returns the principal's role, empty for a nil principal.
func (p *Principal) GetRoleName() string {
	if p == nil {
		return ""
	}
	return p.RoleName
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
