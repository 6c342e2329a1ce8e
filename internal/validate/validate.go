// Package validate checks a decoded search request against the registry and
// the caller's column allow-list. It is pure: no I/O and no logging.
package validate

import (
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/order"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
	"github.com/kailas-cloud/viewdex/internal/domain/search/request"
)

// Plan is a request that passed validation and is ready to compile.
type Plan struct {
	Entity   registry.Entity
	Filter   filter.Node
	Sort     order.Spec
	Page     page.Window
	Columns  []column.Column
	Distinct bool
	// MaxLimit is the page size cap that applied to this request.
	MaxLimit int
}

// Validator validates requests against one registry.
type Validator struct {
	reg    *registry.Registry
	bounds PageBounds
}

// New creates a Validator.
func New(reg *registry.Registry, bounds PageBounds) *Validator {
	return &Validator{reg: reg, bounds: bounds.withDefaults()}
}

// Bounds returns the effective page bounds.
func (v *Validator) Bounds() PageBounds { return v.bounds }

// Validate runs the entity, filter, sort, page and projection checks in that
// order and reports the first failure.
func (v *Validator) Validate(req request.Request, allowed Allowed) (Plan, error) {
	e, err := v.reg.LookupEntity(req.Entity)
	if err != nil {
		return Plan{}, err
	}

	tree := req.Filter
	if tree == nil {
		tree = filter.MatchAll()
	}
	if err := Filter(e, tree, allowed); err != nil {
		return Plan{}, err
	}

	spec, err := Sort(e, req.Sort, allowed)
	if err != nil {
		return Plan{}, err
	}

	win, err := Page(e, req.Page, v.bounds)
	if err != nil {
		return Plan{}, err
	}

	cols, err := Projection(e, req.Columns, allowed)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Entity:   e,
		Filter:   tree,
		Sort:     spec,
		Page:     win,
		Columns:  cols,
		Distinct: req.Distinct,
		MaxLimit: v.bounds.MaxLimit(e),
	}, nil
}
