package validate

import (
	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// Projection resolves the requested result columns.
// An empty request means every selectable column the caller may see, in registry order.
func Projection(e registry.Entity, names []string, allowed Allowed) ([]column.Column, error) {
	if len(names) == 0 {
		var out []column.Column
		for _, c := range e.Columns() {
			if c.Selectable() && allowed.Has(c.Name()) {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, &domain.ViolationError{
				Kind: domain.ErrColumnNotAllowed, Entity: e.Name(), Reason: "no selectable columns are allowed",
			}
		}
		return out, nil
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]column.Column, 0, len(names))
	for _, n := range names {
		if !allowed.Has(n) {
			return nil, domain.NewColumnViolation(domain.ErrColumnNotAllowed, e.Name(), n, "")
		}
		c, ok := e.Column(n)
		if !ok {
			return nil, domain.NewColumnViolation(domain.ErrColumnNotFound, e.Name(), n, "")
		}
		if !c.Selectable() {
			return nil, domain.NewColumnViolation(domain.ErrColumnNotAllowed, e.Name(), n, "column is not selectable")
		}
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
