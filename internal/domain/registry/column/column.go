package column

import (
	"fmt"
	"regexp"
	"strings"
)

// identRegex is the identifier grammar shared by columns, entities and view segments.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidIdent reports whether s is a plain SQL identifier.
func ValidIdent(s string) bool { return identRegex.MatchString(s) }

// Flags controls what a column may be used for.
type Flags struct {
	Filterable bool
	Sortable   bool
	Selectable bool
}

// AllFlags enables filtering, sorting and projection.
var AllFlags = Flags{Filterable: true, Sortable: true, Selectable: true}

// Column is an immutable value object describing one column of an entity.
type Column struct {
	name  string
	key   string
	typ   Type
	flags Flags
}

// New validates and creates a Column.
// Name must be a plain identifier of at most 128 chars; type must be one of the semantic types.
func New(name string, t Type, flags Flags) (Column, error) {
	if name == "" {
		return Column{}, fmt.Errorf("column name is required")
	}
	if len(name) > 128 {
		return Column{}, fmt.Errorf("column name %q too long (max 128)", name)
	}
	if !ValidIdent(name) {
		return Column{}, fmt.Errorf("column name %q is not a valid identifier", name)
	}
	if !t.Valid() {
		return Column{}, fmt.Errorf("invalid column type %q for %q", t, name)
	}
	return Reconstruct(name, t, flags), nil
}

// Reconstruct creates a Column without validation (catalog hydration).
func Reconstruct(name string, t Type, flags Flags) Column {
	return Column{name: name, key: Key(name), typ: t, flags: flags}
}

// Key returns the case-normalized lookup key for a column name.
func Key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Name returns the column name as declared in the backing view.
func (c Column) Name() string { return c.name }

// Key returns the case-normalized name used for lookups.
func (c Column) Key() string { return c.key }

// Type returns the semantic type.
func (c Column) Type() Type { return c.typ }

// Flags returns the usage flags.
func (c Column) Flags() Flags { return c.flags }

// Filterable reports whether the column may appear in a filter.
func (c Column) Filterable() bool { return c.flags.Filterable }

// Sortable reports whether the column may appear in a sort.
func (c Column) Sortable() bool { return c.flags.Sortable }

// Selectable reports whether the column may be projected.
func (c Column) Selectable() bool { return c.flags.Selectable }
