package chi

import (
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/auth"
	"github.com/kailas-cloud/viewdex/internal/domain"
	logpkg "github.com/kailas-cloud/viewdex/internal/logger"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// exemptPrefixes cover the sign-in routes, which authenticate by their own body or cookie.
var exemptPrefixes = []string{"/auth/"}

func isExempt(path string) bool {
	if _, ok := exemptPaths[path]; ok {
		return true
	}
	for _, p := range exemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AuthMiddleware resolves the Bearer credential into a principal on the request context.
// If the authenticator is nil or has no credential sources, authentication is disabled (pass-through).
func AuthMiddleware(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Auth disabled: every caller is anonymous
		if a == nil || !a.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(header, bearerPrefix) {
				unauthorized(w, "authorization header must use Bearer scheme")
				return
			}

			p, err := a.Authenticate(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				logpkg.FromContext(r.Context()).Debug("authentication failed", zap.Error(err))
				unauthorized(w, "invalid credentials")
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), p)
			ctx = logpkg.ContextWithLogger(ctx, logpkg.FromContext(ctx).With(zap.String("subject", p.ID())))
			setCaller(ctx, p.ID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers that lack role.
// It is a no-op when authentication is disabled or role is empty.
func RequireRole(a *auth.Authenticator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if a == nil || !a.Enabled() || role == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				unauthorized(w, "missing credentials")
				return
			}
			if !slices.Contains(p.Roles, role) {
				writeError(w, http.StatusForbidden, domain.Code(domain.ErrForbidden), "role "+role+" is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="viewdex"`)
	writeError(w, http.StatusUnauthorized, domain.Code(domain.ErrUnauthorized), msg)
}
