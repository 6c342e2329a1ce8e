package validate

import (
	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/search/order"
)

// Sort checks each key and returns the spec with canonical column names.
// Every failure is a SortNotAllowed violation.
func Sort(e registry.Entity, spec order.Spec, allowed Allowed) (order.Spec, error) {
	if len(spec) == 0 {
		return nil, nil
	}
	if dup, ok := spec.Duplicate(); ok {
		return nil, domain.NewColumnViolation(domain.ErrSortNotAllowed, e.Name(), dup, "column sorted more than once")
	}

	out := make(order.Spec, 0, len(spec))
	seen := make(map[string]struct{}, len(spec))
	for _, k := range spec {
		if !allowed.Has(k.Column) {
			return nil, domain.NewColumnViolation(domain.ErrSortNotAllowed, e.Name(), k.Column, "column is not allowed")
		}
		col, ok := e.Column(k.Column)
		if !ok {
			return nil, domain.NewColumnViolation(domain.ErrSortNotAllowed, e.Name(), k.Column, "unknown column")
		}
		if !col.Sortable() {
			return nil, domain.NewColumnViolation(domain.ErrSortNotAllowed, e.Name(), k.Column, "column is not sortable")
		}
		if _, dup := seen[col.Key()]; dup {
			return nil, domain.NewColumnViolation(domain.ErrSortNotAllowed, e.Name(), col.Name(), "column sorted more than once")
		}
		seen[col.Key()] = struct{}{}
		dir := k.Direction
		if dir == "" {
			dir = order.Asc
		}
		out = append(out, order.Key{Column: col.Name(), Direction: dir})
	}
	return out, nil
}
