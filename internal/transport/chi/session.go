package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/viewdex/internal/auth"
	"github.com/kailas-cloud/viewdex/internal/domain"
)

const codeSignInDisabled = "sign_in_disabled"

type signInRequest struct {
	IDToken       string `json:"idToken"`
	LegacyIDToken string `json:"id_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) signInEnabled() bool {
	return s.deps.Google != nil && s.deps.Tokens != nil
}

// SignInGoogle handles POST /auth/google: a Google ID token is exchanged for session tokens.
func (s *Server) SignInGoogle(w http.ResponseWriter, r *http.Request) {
	if !s.signInEnabled() {
		writeError(w, http.StatusNotImplemented, codeSignInDisabled, "sign-in is not configured")
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req signInRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	token := req.IDToken
	if token == "" {
		token = req.LegacyIDToken
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "idToken is required")
		return
	}

	id, err := s.deps.Google.Verify(r.Context(), token)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.issue(w, r, auth.Principal{
		Subject: id.Subject,
		Email:   id.Email,
		Roles:   s.rolesFor(id.Email),
		Method:  auth.MethodSession,
	})
}

// Refresh handles POST /auth/refresh. The refresh token comes from the cookie or the body.
// Roles are re-derived so binding changes apply on the next rotation.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	if !s.signInEnabled() {
		writeError(w, http.StatusNotImplemented, codeSignInDisabled, "sign-in is not configured")
		return
	}
	token := ""
	if c, err := r.Cookie(s.deps.RefreshCookie.Name); err == nil {
		token = c.Value
	}
	if token == "" {
		body, ok := readBody(w, r)
		if !ok {
			return
		}
		var req refreshRequest
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
				return
			}
		}
		token = req.RefreshToken
	}
	if token == "" {
		s.handleDomainError(w, r, fmt.Errorf("%w: missing refresh token", domain.ErrUnauthorized))
		return
	}

	p, err := s.deps.Tokens.VerifyRefresh(token)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if p.Email != "" {
		p.Roles = s.rolesFor(p.Email)
	}
	s.issue(w, r, p)
}

// Logout handles POST /auth/logout by clearing the refresh cookie.
func (s *Server) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, s.refreshCookie("", time.Unix(0, 0), -1))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /me.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, MeResponse{Sub: anonymousSubject, Roles: []string{}})
		return
	}
	roles := p.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, MeResponse{Sub: p.Subject, Email: p.Email, Roles: roles, Method: p.Method})
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	pair, err := s.deps.Tokens.Issue(p)
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("issue tokens: %w", err))
		return
	}
	http.SetCookie(w, s.refreshCookie(pair.RefreshToken, pair.RefreshExpiresAt, 0))
	writeJSON(w, http.StatusOK, TokenResponse{
		TokenType:    "Bearer",
		AccessToken:  pair.AccessToken,
		ExpiresIn:    int64(time.Until(pair.AccessExpiresAt).Seconds()),
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) rolesFor(email string) []string {
	if s.deps.Roles == nil {
		return []string{}
	}
	return s.deps.Roles.Roles(email)
}

// refreshCookie builds the refresh cookie. Secure cookies use SameSite=None for cross-site SPAs.
func (s *Server) refreshCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	cfg := s.deps.RefreshCookie
	sameSite := http.SameSiteLaxMode
	if cfg.Secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    value,
		Path:     cfg.Path,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
