package validate

import (
	"sort"

	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// Allowed is the opaque per-caller column allow-list produced by access control.
// The zero value allows nothing.
type Allowed struct {
	all bool
	set map[string]struct{}
}

// AllowColumns allows exactly the named columns (case-insensitive).
func AllowColumns(names ...string) Allowed {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[column.Key(n)] = struct{}{}
	}
	return Allowed{set: set}
}

// AllowEntity allows every column of e.
func AllowEntity(e registry.Entity) Allowed {
	cols := e.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return AllowColumns(names...)
}

// AllowAll allows any column; for trusted local tooling only.
func AllowAll() Allowed { return Allowed{all: true} }

// Has reports whether name is allowed.
func (a Allowed) Has(name string) bool {
	if a.all {
		return true
	}
	_, ok := a.set[column.Key(name)]
	return ok
}

// Names returns the allowed column keys, sorted. It is nil for AllowAll.
func (a Allowed) Names() []string {
	if a.all {
		return nil
	}
	out := make([]string, 0, len(a.set))
	for k := range a.set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
