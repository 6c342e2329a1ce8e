package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/auth"
	"github.com/kailas-cloud/viewdex/internal/domain"
)

// anonymousSubject is used when authentication is disabled.
const anonymousSubject = "anonymous"

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Search.Search(r.Context(), subjectFrom(r), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(res))
}

// CompileSQL handles POST /sql. The statement is returned, never executed.
func (s *Server) CompileSQL(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	p, err := s.deps.Search.Compile(r.Context(), subjectFrom(r), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewToResponse(p))
}

// DraftFilter handles POST /search/draft.
func (s *Server) DraftFilter(w http.ResponseWriter, r *http.Request) {
	if s.deps.Draft == nil || !s.deps.Draft.Enabled() {
		s.handleDomainError(w, r, domain.ErrDraftUnavailable)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var req DraftRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Entity == "" {
		s.handleDomainError(w, r, &domain.ViolationError{Kind: domain.ErrEntityNotFound, Reason: "entity is required"})
		return
	}

	d, err := s.deps.Draft.Draft(r.Context(), subjectFrom(r), req.Entity, req.Prompt)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Entity: d.Entity, Filter: d.Filter})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	return body, true
}

// subjectFrom maps the authenticated principal to a policy subject.
func subjectFrom(r *http.Request) access.Subject {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return access.Subject{ID: anonymousSubject}
	}
	return access.Subject{ID: p.ID(), Roles: p.Roles}
}
