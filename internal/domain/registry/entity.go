package registry

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
)

// Entity is a named, queryable view and its ordered columns (immutable value object).
type Entity struct {
	name        string
	key         string
	view        string
	description string
	columns     []column.Column
	byKey       map[string]int
	defaultSort string
	maxPageSize int
}

// EntityOption customizes an Entity at construction time.
type EntityOption func(*Entity)

// WithMaxPageSize caps the page size for this entity. Zero means the global cap applies.
func WithMaxPageSize(n int) EntityOption {
	return func(e *Entity) { e.maxPageSize = n }
}

// WithDefaultSort names the column used when a request has no sort.
func WithDefaultSort(name string) EntityOption {
	return func(e *Entity) { e.defaultSort = column.Key(name) }
}

// WithDescription attaches a human-readable description.
func WithDescription(d string) EntityOption {
	return func(e *Entity) { e.description = d }
}

// NewEntity validates and creates an Entity.
// Name must be an identifier, view a dotted identifier, columns unique case-insensitively
// with at least one selectable column.
func NewEntity(name, view string, columns []column.Column, opts ...EntityOption) (Entity, error) {
	if !column.ValidIdent(name) {
		return Entity{}, fmt.Errorf("entity name %q is not a valid identifier", name)
	}
	if err := validateView(view); err != nil {
		return Entity{}, fmt.Errorf("entity %s: %w", name, err)
	}
	e := Reconstruct(name, view, columns, opts...)
	if err := e.validate(); err != nil {
		return Entity{}, err
	}
	return e, nil
}

// Reconstruct creates an Entity without validation (catalog hydration).
func Reconstruct(name, view string, columns []column.Column, opts ...EntityOption) Entity {
	cols := make([]column.Column, len(columns))
	copy(cols, columns)
	e := Entity{
		name:    name,
		key:     column.Key(name),
		view:    view,
		columns: cols,
		byKey:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := e.byKey[c.Key()]; !dup {
			e.byKey[c.Key()] = i
		}
	}
	for _, o := range opts {
		o(&e)
	}
	return e
}

func validateView(view string) error {
	if view == "" {
		return fmt.Errorf("view is required")
	}
	for _, seg := range strings.Split(view, ".") {
		if !column.ValidIdent(seg) {
			return fmt.Errorf("view %q: segment %q is not a valid identifier", view, seg)
		}
	}
	return nil
}

func (e Entity) validate() error {
	if len(e.columns) == 0 {
		return fmt.Errorf("entity %s: no columns", e.name)
	}
	seen := make(map[string]string, len(e.columns))
	selectable := false
	for _, c := range e.columns {
		if prev, dup := seen[c.Key()]; dup {
			return fmt.Errorf("entity %s: duplicate column %q (conflicts with %q)", e.name, c.Name(), prev)
		}
		seen[c.Key()] = c.Name()
		if c.Selectable() {
			selectable = true
		}
	}
	if !selectable {
		return fmt.Errorf("entity %s: at least one selectable column is required", e.name)
	}
	if e.maxPageSize < 0 {
		return fmt.Errorf("entity %s: max page size must be non-negative", e.name)
	}
	if e.defaultSort != "" {
		c, ok := e.Column(e.defaultSort)
		if !ok {
			return fmt.Errorf("entity %s: default sort column %q not found", e.name, e.defaultSort)
		}
		if !c.Sortable() {
			return fmt.Errorf("entity %s: default sort column %q is not sortable", e.name, c.Name())
		}
	}
	return nil
}

// Name returns the entity name.
func (e Entity) Name() string { return e.name }

// Key returns the case-normalized entity name.
func (e Entity) Key() string { return e.key }

// View returns the backing view or table identifier (possibly dotted).
func (e Entity) View() string { return e.view }

// Description returns the optional description.
func (e Entity) Description() string { return e.description }

// MaxPageSize returns the entity page cap, or 0 if the global cap applies.
func (e Entity) MaxPageSize() int { return e.maxPageSize }

// Columns returns a copy of the columns in declaration order.
func (e Entity) Columns() []column.Column {
	out := make([]column.Column, len(e.columns))
	copy(out, e.columns)
	return out
}

// Column looks up a column case-insensitively.
func (e Entity) Column(name string) (column.Column, bool) {
	i, ok := e.byKey[column.Key(name)]
	if !ok {
		return column.Column{}, false
	}
	return e.columns[i], true
}

// DefaultSort returns the column used for deterministic ordering when a request has none:
// the configured default, else the first sortable column, else the first column.
func (e Entity) DefaultSort() column.Column {
	if e.defaultSort != "" {
		if c, ok := e.Column(e.defaultSort); ok {
			return c
		}
	}
	for _, c := range e.columns {
		if c.Sortable() {
			return c
		}
	}
	return e.columns[0]
}
