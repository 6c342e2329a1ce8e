package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Identity is a verified Google account.
type Identity struct {
	Subject string
	Email   string
}

// GoogleVerifier validates Google ID tokens issued for one OAuth client.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier creates a verifier for clientID.
func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}, nil
}

// Verify checks signature, audience and issuer, and requires a verified email.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: id token is required", domain.ErrUnauthorized)
	}
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: validate id token: %w", domain.ErrUnauthorized, err)
	}
	if payload.Audience != v.clientID {
		return Identity{}, fmt.Errorf("%w: id token audience mismatch", domain.ErrUnauthorized)
	}
	if !googleIssuers[payload.Issuer] {
		return Identity{}, fmt.Errorf("%w: unexpected issuer %q", domain.ErrUnauthorized, payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return Identity{}, fmt.Errorf("%w: email not verified", domain.ErrUnauthorized)
	}
	return Identity{Subject: payload.Subject, Email: email}, nil
}
