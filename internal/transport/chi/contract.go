package chi

import (
	"context"

	"github.com/kailas-cloud/viewdex/internal/auth"
)

// IdentityVerifier verifies a third-party ID token (Google sign-in).
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}
