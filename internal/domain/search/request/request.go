// Package request decodes the search envelope: entity, filter, sort, page and projection.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/order"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
)

// Request is a decoded, not yet validated, search request.
type Request struct {
	Entity   string
	Filter   filter.Node
	Sort     order.Spec
	Page     page.Request
	Columns  []string
	Distinct bool
}

type envelope struct {
	Entity     string          `json:"entity"`
	EntityName string          `json:"entityName"`
	Filter     json.RawMessage `json:"filter"`
	Sort       json.RawMessage `json:"sort"`
	Page       json.RawMessage `json:"page"`
	PageSize   *int            `json:"pageSize"`
	PageIndex  *int            `json:"pageIndex"`
	Columns    []string        `json:"columns"`
	Distinct   bool            `json:"distinct"`
}

// Parse decodes a search request. A missing filter means match-all.
func Parse(data []byte, lim filter.Limits) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Request{}, domain.NewMalformed("$", "request must be a JSON object")
	}

	entity := strings.TrimSpace(env.Entity)
	if entity == "" {
		entity = strings.TrimSpace(env.EntityName)
	}
	if entity == "" {
		return Request{}, &domain.ViolationError{Kind: domain.ErrEntityNotFound, Reason: "entity is required"}
	}

	req := Request{
		Entity:   entity,
		Filter:   filter.MatchAll(),
		Distinct: env.Distinct,
	}

	if f := bytes.TrimSpace(env.Filter); len(f) > 0 && !bytes.Equal(f, []byte("null")) {
		node, err := filter.Parse(f, lim)
		if err != nil {
			return Request{}, fmt.Errorf("parse filter: %w", err)
		}
		req.Filter = node
	}

	spec, err := order.Parse(env.Sort)
	if err != nil {
		return Request{}, fmt.Errorf("parse sort: %w", err)
	}
	req.Sort = spec

	switch {
	case len(bytes.TrimSpace(env.Page)) > 0 && !bytes.Equal(bytes.TrimSpace(env.Page), []byte("null")):
		p, err := page.Parse(env.Page)
		if err != nil {
			return Request{}, fmt.Errorf("parse page: %w", err)
		}
		req.Page = p
	case env.PageSize != nil || env.PageIndex != nil:
		req.Page = page.Legacy(deref(env.PageSize), deref(env.PageIndex))
	}

	for _, c := range env.Columns {
		c = strings.TrimSpace(c)
		if c == "" || c == "*" {
			continue
		}
		req.Columns = append(req.Columns, c)
	}
	return req, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
