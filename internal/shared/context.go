package shared

import "context"

// Identity carries the authenticated caller resolved from the bearer token.
// CompanyID is the tenant id for every repository operation.
type Identity struct {
	UserID    int64
	CompanyID int64
	Role      string
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
