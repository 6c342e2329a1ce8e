package chi

import (
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	healthuc "github.com/kailas-cloud/viewdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
)

// PageResponse echoes the applied window.
type PageResponse struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// SearchResponse is the body of POST /search.
type SearchResponse struct {
	Entity          string       `json:"entity"`
	MappedView      string       `json:"mappedView"`
	Columns         []string     `json:"columns"`
	Rows            [][]any      `json:"rows"`
	Total           *int64       `json:"total,omitempty"`
	Page            PageResponse `json:"page"`
	PageSizeApplied int          `json:"pageSizeApplied"`
	MaxPageSize     int          `json:"maxPageSize"`
}

// SQLResponse is the body of POST /sql.
type SQLResponse struct {
	SQL             string `json:"sql"`
	Params          []any  `json:"params"`
	CountSQL        string `json:"countSql"`
	CountParams     []any  `json:"countParams"`
	PageSizeApplied int    `json:"pageSizeApplied"`
	MaxPageSize     int    `json:"maxPageSize"`
	MappedView      string `json:"mappedView"`
}

// ColumnResponse describes one column of an entity.
type ColumnResponse struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Filterable bool   `json:"filterable"`
	Sortable   bool   `json:"sortable"`
	Selectable bool   `json:"selectable"`
}

// EntityResponse describes one entity.
type EntityResponse struct {
	Entity      string           `json:"entity"`
	View        string           `json:"view"`
	Description string           `json:"description,omitempty"`
	MaxPageSize int              `json:"maxPageSize"`
	DefaultSort string           `json:"defaultSort"`
	Columns     []ColumnResponse `json:"columns,omitempty"`
}

// EntityListResponse is the body of GET /entities.
type EntityListResponse struct {
	Entities []EntityResponse `json:"entities"`
}

// DraftRequest is the body of POST /search/draft.
type DraftRequest struct {
	Entity string `json:"entity"`
	Prompt string `json:"prompt"`
}

// DraftResponse carries a validated, unexecuted filter.
type DraftResponse struct {
	Entity string      `json:"entity"`
	Filter filter.Node `json:"filter"`
}

// TokenResponse is returned by the sign-in and refresh routes.
type TokenResponse struct {
	TokenType    string `json:"tokenType"`
	AccessToken  string `json:"accessToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	RefreshToken string `json:"refreshToken"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	Sub    string   `json:"sub"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	Method string   `json:"method,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                          `json:"status"`
	Checks   map[string]healthuc.CheckResult `json:"checks"`
	Entities []string                        `json:"entities,omitempty"`
}

func searchToResponse(res searchuc.Result) SearchResponse {
	resp := SearchResponse{
		Entity:          res.Entity,
		MappedView:      res.View,
		Columns:         res.Columns,
		Rows:            res.Rows,
		Page:            PageResponse{Offset: res.Page.Offset, Limit: res.Page.Limit},
		PageSizeApplied: res.PageSizeApplied,
		MaxPageSize:     res.MaxPageSize,
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if resp.Rows == nil {
		resp.Rows = [][]any{}
	}
	if res.Total >= 0 {
		total := res.Total
		resp.Total = &total
	}
	return resp
}

func previewToResponse(p searchuc.Preview) SQLResponse {
	return SQLResponse{
		SQL:             p.SQL,
		Params:          p.Params,
		CountSQL:        p.CountSQL,
		CountParams:     p.CountParams,
		PageSizeApplied: p.PageSizeApplied,
		MaxPageSize:     p.MaxPageSize,
		MappedView:      p.MappedView,
	}
}

func entityToResponse(e registry.Entity, maxPageSize int, cols []column.Column, withColumns bool) EntityResponse {
	resp := EntityResponse{
		Entity:      e.Name(),
		View:        e.View(),
		Description: e.Description(),
		MaxPageSize: maxPageSize,
		DefaultSort: e.DefaultSort().Name(),
	}
	if withColumns {
		resp.Columns = make([]ColumnResponse, len(cols))
		for i, c := range cols {
			resp.Columns[i] = ColumnResponse{
				Name:       c.Name(),
				Type:       string(c.Type()),
				Filterable: c.Filterable(),
				Sortable:   c.Sortable(),
				Selectable: c.Selectable(),
			}
		}
	}
	return resp
}
