package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims holds the session claims. The subject is in "sub".
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
	Type  string   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Pair is an issued access and refresh token.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService creates a token service. Both secrets are required.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

// Issue signs a fresh access and refresh token for p.
func (ts *TokenService) Issue(p Principal) (Pair, error) {
	now := ts.now().UTC()
	pair := Pair{
		AccessExpiresAt:  now.Add(ts.cfg.AccessTTL),
		RefreshExpiresAt: now.Add(ts.cfg.RefreshTTL),
	}

	var err error
	pair.AccessToken, err = ts.sign(p, TypeAccess, now, pair.AccessExpiresAt, "", ts.cfg.AccessSecret)
	if err != nil {
		return Pair{}, err
	}
	pair.RefreshToken, err = ts.sign(p, TypeRefresh, now, pair.RefreshExpiresAt, uuid.NewString(), ts.cfg.RefreshSecret)
	if err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func (ts *TokenService) sign(p Principal, typ string, now, exp time.Time, jti string, secret []byte) (string, error) {
	claims := Claims{
		Email: p.Email,
		Roles: p.Roles,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.cfg.Issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	if ts.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{ts.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its principal.
func (ts *TokenService) VerifyAccess(token string) (Principal, error) {
	return ts.verify(token, TypeAccess, ts.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns its principal.
func (ts *TokenService) VerifyRefresh(token string) (Principal, error) {
	return ts.verify(token, TypeRefresh, ts.cfg.RefreshSecret)
}

func (ts *TokenService) verify(token, typ string, secret []byte) (Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.cfg.Issuer))
	}
	if ts.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(ts.cfg.Audience))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: parse %s token: %w", domain.ErrUnauthorized, typ, err)
	}
	if !parsed.Valid || claims.Type != typ || claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: not a valid %s token", domain.ErrUnauthorized, typ)
	}
	return Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Roles:   claims.Roles,
		Method:  MethodSession,
	}, nil
}
