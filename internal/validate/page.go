package validate

import (
	"math"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
)

// Default page bounds.
const (
	DefaultLimit   = 100
	GlobalMaxLimit = 1000
)

// PageBounds configures pagination. Zero fields fall back to the defaults.
type PageBounds struct {
	DefaultLimit   int
	GlobalMaxLimit int
}

func (b PageBounds) withDefaults() PageBounds {
	if b.GlobalMaxLimit <= 0 {
		b.GlobalMaxLimit = GlobalMaxLimit
	}
	if b.DefaultLimit <= 0 {
		b.DefaultLimit = DefaultLimit
	}
	return b
}

// MaxLimit is the page size cap for e: the entity cap bounded by the global one.
func (b PageBounds) MaxLimit(e registry.Entity) int {
	b = b.withDefaults()
	if m := e.MaxPageSize(); m > 0 && m < b.GlobalMaxLimit {
		return m
	}
	return b.GlobalMaxLimit
}

// Page turns requested pagination into a bounded window.
// Limits above the cap are clamped; negative offsets and limits below 1 are rejected.
func Page(e registry.Entity, p page.Request, bounds PageBounds) (page.Window, error) {
	bounds = bounds.withDefaults()
	maxLimit := bounds.MaxLimit(e)

	limit := min(bounds.DefaultLimit, maxLimit)
	if p.HasLimit {
		if p.Limit < 1 {
			return page.Window{}, domain.NewPaginationViolation("limit must be at least 1")
		}
		limit = min(p.Limit, maxLimit)
	}

	offset := p.Offset
	if p.ByIndex {
		if p.Index < 0 {
			return page.Window{}, domain.NewPaginationViolation("page index must not be negative")
		}
		if p.Index > math.MaxInt32/limit {
			return page.Window{}, domain.NewPaginationViolation("page index is too large")
		}
		offset = p.Index * limit
	}
	if offset < 0 {
		return page.Window{}, domain.NewPaginationViolation("offset must not be negative")
	}
	return page.Window{Offset: offset, Limit: limit}, nil
}
