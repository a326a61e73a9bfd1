package auth

import "context"

// Authorized is the typed value the authorization gate yields into business
// logic: a validated identity, the target workspace, and the resolved permit.
// Handlers never re-read raw session state themselves.
type Authorized struct {
	User      User
	Workspace Workspace
	Permit    Permit
}

type authorizedContextKey struct{}

// ContextWithAuthorized attaches the authorized request state to the context.
func ContextWithAuthorized(ctx context.Context, a Authorized) context.Context {
	return context.WithValue(ctx, authorizedContextKey{}, &a)
}

// AuthorizedFromContext extracts the authorized request state from the context.
func AuthorizedFromContext(ctx context.Context) (Authorized, bool) {
	if ctx == nil {
		return Authorized{}, false
	}
	v, ok := ctx.Value(authorizedContextKey{}).(*Authorized)
	if !ok || v == nil {
		return Authorized{}, false
	}
	return *v, true
}
