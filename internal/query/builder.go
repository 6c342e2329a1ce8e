// Package query compiles validated search requests into parameterized SQL.
//
// Values are always bound as parameters. Identifiers come from the registry
// and are folded to the dialect's case, then quoted; LIMIT and OFFSET are
// range-checked integers.
package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/order"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
)

// Options configures a Builder.
type Options struct {
	Dialect Dialect
	// UseILike compiles pattern operators to ILIKE where the dialect has it.
	UseILike bool
}

// Builder compiles statements against one registry.
type Builder struct {
	reg     *registry.Registry
	dialect Dialect
	like    string
}

// New creates a Builder. A zero dialect means Generic.
func New(reg *registry.Registry, opts Options) *Builder {
	d := opts.Dialect
	if d.Name == "" {
		d = Generic
	}
	like := "LIKE"
	if opts.UseILike && d.ILike {
		like = "ILIKE"
	}
	return &Builder{reg: reg, dialect: d, like: like}
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() Dialect { return b.dialect }

// Input is a request that already passed validation.
type Input struct {
	Entity   string
	Filter   filter.Node
	Sort     order.Spec
	Page     page.Window
	Columns  []string
	Distinct bool
}

// Statement is SQL text plus its positional parameters.
type Statement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"params"`
}

// Compile builds the SELECT for in.
// Any failure is an ErrRegistryInvariant violation: validation should have caught it.
func (b *Builder) Compile(in Input) (Statement, error) {
	e, where, err := b.prepare(in)
	if err != nil {
		return Statement{}, err
	}
	if in.Page.Limit < 1 || in.Page.Offset < 0 {
		return Statement{}, invariant(e.Name(), "", fmt.Sprintf("unbounded page %+v", in.Page))
	}

	cols, err := b.projection(e, in.Columns)
	if err != nil {
		return Statement{}, err
	}
	orderBy, err := b.orderBy(e, in.Sort)
	if err != nil {
		return Statement{}, err
	}

	sel := sq.Select(cols...).From(b.dialect.View(e.View())).Where(where)
	if in.Distinct {
		sel = sel.Distinct()
	}
	sel = sel.OrderBy(orderBy...).
		Limit(uint64(in.Page.Limit)).
		Offset(uint64(in.Page.Offset)).
		PlaceholderFormat(b.dialect.Placeholder)

	return b.finish(e, sel)
}

// CompileCount builds the COUNT(*) statement matching in, ignoring sort and page.
func (b *Builder) CompileCount(in Input) (Statement, error) {
	e, where, err := b.prepare(in)
	if err != nil {
		return Statement{}, err
	}

	var sel sq.SelectBuilder
	if in.Distinct {
		cols, err := b.projection(e, in.Columns)
		if err != nil {
			return Statement{}, err
		}
		inner := sq.Select(cols...).Distinct().From(b.dialect.View(e.View())).Where(where)
		sel = sq.Select("COUNT(*)").FromSelect(inner, "matched")
	} else {
		sel = sq.Select("COUNT(*)").From(b.dialect.View(e.View())).Where(where)
	}
	return b.finish(e, sel.PlaceholderFormat(b.dialect.Placeholder))
}

func (b *Builder) prepare(in Input) (registry.Entity, sq.Sqlizer, error) {
	e, err := b.reg.LookupEntity(in.Entity)
	if err != nil {
		return registry.Entity{}, nil, invariant(in.Entity, "", "entity passed validation but is not registered")
	}
	tree := in.Filter
	if tree == nil {
		tree = filter.MatchAll()
	}
	where, err := predicate{entity: e, dialect: b.dialect, like: b.like}.node(tree)
	if err != nil {
		return registry.Entity{}, nil, err
	}
	return e, where, nil
}

func (b *Builder) finish(e registry.Entity, sel sq.SelectBuilder) (Statement, error) {
	sql, args, err := sel.ToSql()
	if err != nil {
		return Statement{}, invariant(e.Name(), "", err.Error())
	}
	if args == nil {
		args = []any{}
	}
	return Statement{SQL: sql, Args: args}, nil
}

// projection quotes the requested columns, or every selectable column when none are given.
func (b *Builder) projection(e registry.Entity, names []string) ([]string, error) {
	if len(names) == 0 {
		var out []string
		for _, c := range e.Columns() {
			if c.Selectable() {
				out = append(out, b.dialect.Ident(c.Name()))
			}
		}
		return out, nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		c, ok := e.Column(n)
		if !ok {
			return nil, invariant(e.Name(), n, "projected column is not registered")
		}
		out = append(out, b.dialect.Ident(c.Name()))
	}
	return out, nil
}

// orderBy falls back to the entity default sort so pagination is deterministic.
func (b *Builder) orderBy(e registry.Entity, spec order.Spec) ([]string, error) {
	if len(spec) == 0 {
		return []string{b.dialect.Ident(e.DefaultSort().Name()) + " " + string(order.Asc)}, nil
	}
	out := make([]string, 0, len(spec))
	for _, k := range spec {
		c, ok := e.Column(k.Column)
		if !ok {
			return nil, invariant(e.Name(), k.Column, "sort column is not registered")
		}
		dir := order.Asc
		if k.Direction == order.Desc {
			dir = order.Desc
		}
		out = append(out, b.dialect.Ident(c.Name())+" "+string(dir))
	}
	return out, nil
}

func invariant(entity, col, reason string) error {
	return &domain.ViolationError{
		Kind:   domain.ErrRegistryInvariant,
		Entity: entity,
		Column: col,
		Reason: reason,
	}
}
