package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// ListEntitiesParams are the query parameters of GET /entities.
type ListEntitiesParams struct {
	IncludeColumns *bool `form:"include_columns"`
	Limit          *int  `form:"limit"`
}

// ListEntities handles GET /entities. Only entities with at least one allowed column are listed.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	var params ListEntitiesParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "include_columns", q, &params.IncludeColumns); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter include_columns: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &params.Limit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}
	withColumns := params.IncludeColumns == nil || *params.IncludeColumns
	if params.Limit != nil && *params.Limit < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be positive")
		return
	}

	subject := subjectFrom(r)
	entities, err := s.deps.Search.Entities(subject)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if params.Limit != nil && *params.Limit < len(entities) {
		entities = entities[:*params.Limit]
	}

	items := make([]EntityResponse, 0, len(entities))
	for _, e := range entities {
		_, cols, err := s.deps.Search.AllowedColumns(subject, e.Name())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		items = append(items, entityToResponse(e, s.deps.Search.MaxPageSize(e), cols, withColumns))
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: items})
}

// GetEntity handles GET /entities/{entity}. An entity the caller cannot see is reported as not found.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	e, cols, err := s.deps.Search.AllowedColumns(subjectFrom(r), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(cols) == 0 {
		s.handleDomainError(w, r, entityHidden(name))
		return
	}
	writeJSON(w, http.StatusOK, entityToResponse(e, s.deps.Search.MaxPageSize(e), cols, true))
}

func entityHidden(name string) error {
	return &domain.ViolationError{Kind: domain.ErrEntityNotFound, Entity: name, Reason: "unknown entity"}
}
