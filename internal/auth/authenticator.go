package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// Authenticator resolves bearer credentials: static API keys first, then session tokens.
type Authenticator struct {
	keys   map[string][]string
	tokens *TokenService
}

// NewAuthenticator creates an authenticator. tokens may be nil when sign-in is disabled.
func NewAuthenticator(apiKeys map[string][]string, tokens *TokenService) *Authenticator {
	keys := make(map[string][]string, len(apiKeys))
	for k, roles := range apiKeys {
		if k != "" {
			keys[k] = roles
		}
	}
	return &Authenticator{keys: keys, tokens: tokens}
}

// Enabled reports whether any credential source is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.keys) > 0 || a.tokens != nil
}

// Authenticate resolves a bearer credential to a principal.
func (a *Authenticator) Authenticate(bearer string) (Principal, error) {
	if bearer == "" {
		return Principal{}, fmt.Errorf("%w: missing credentials", domain.ErrUnauthorized)
	}
	if roles, ok := a.keys[bearer]; ok {
		return Principal{Subject: keySubject(bearer), Roles: clone(roles), Method: MethodAPIKey}, nil
	}
	if a.tokens == nil {
		return Principal{}, fmt.Errorf("%w: invalid api key", domain.ErrUnauthorized)
	}
	return a.tokens.VerifyAccess(bearer)
}

// keySubject names an API key caller without exposing the key.
func keySubject(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "api-key:" + hex.EncodeToString(sum[:4])
}
