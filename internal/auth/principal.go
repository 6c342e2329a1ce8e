// Package auth authenticates callers: API keys, Google sign-in and session tokens.
package auth

import "context"

// Authentication methods recorded on a Principal.
const (
	MethodAPIKey  = "api_key"
	MethodSession = "session"
)

// Principal is an authenticated caller.
type Principal struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles"`
	Method  string   `json:"method"`
}

// ID returns the identity used for policy lookups: the email when known, else the subject.
func (p Principal) ID() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Subject
}

type ctxKey struct{}

// ContextWithPrincipal stores p in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext extracts the principal placed by the auth middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
