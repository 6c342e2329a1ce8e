package query

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
)

const (
	sqlTrue  = "1=1"
	sqlFalse = "1=0"
)

// predicate compiles a filter tree into a Sqlizer with '?' placeholders.
type predicate struct {
	entity  registry.Entity
	dialect Dialect
	like    string
}

func (p predicate) node(n filter.Node) (sq.Sqlizer, error) {
	switch t := n.(type) {
	case filter.Group:
		return p.group(t)
	case filter.Not:
		child, err := p.node(t.Child)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", child), nil
	case filter.Comparison:
		return p.comparison(t)
	}
	return nil, invariant(p.entity.Name(), "", fmt.Sprintf("unsupported filter node %T", n))
}

// group joins parenthesized children. Empty AND is true, empty OR is false.
func (p predicate) group(g filter.Group) (sq.Sqlizer, error) {
	if len(g.Children) == 0 {
		if g.Op == filter.Or {
			return sq.Expr(sqlFalse), nil
		}
		return sq.Expr(sqlTrue), nil
	}

	parts := make([]sq.Sqlizer, 0, len(g.Children))
	for _, ch := range g.Children {
		s, err := p.node(ch)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sq.Expr("(?)", s))
	}
	if g.Op == filter.Or {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

func (p predicate) comparison(c filter.Comparison) (sq.Sqlizer, error) {
	col, ok := p.entity.Column(c.Column)
	if !ok {
		return nil, invariant(p.entity.Name(), c.Column, "column passed validation but is not registered")
	}
	q := p.dialect.Ident(col.Name())

	args, err := p.bind(col, c)
	if err != nil {
		return nil, err
	}

	switch c.Operator {
	case filter.Eq:
		return sq.Expr(q+" = ?", args...), nil
	case filter.Neq:
		return sq.Expr(q+" <> ?", args...), nil
	case filter.Gt:
		return sq.Expr(q+" > ?", args...), nil
	case filter.Gte:
		return sq.Expr(q+" >= ?", args...), nil
	case filter.Lt:
		return sq.Expr(q+" < ?", args...), nil
	case filter.Lte:
		return sq.Expr(q+" <= ?", args...), nil
	case filter.In:
		if len(args) == 0 {
			return sq.Expr(sqlFalse), nil
		}
		return sq.Expr(q+" IN ("+sq.Placeholders(len(args))+")", args...), nil
	case filter.NotIn:
		if len(args) == 0 {
			return sq.Expr(sqlTrue), nil
		}
		return sq.Expr(q+" NOT IN ("+sq.Placeholders(len(args))+")", args...), nil
	case filter.Between:
		return sq.Expr(q+" BETWEEN ? AND ?", args...), nil
	case filter.IsNull:
		return sq.Expr(q + " IS NULL"), nil
	case filter.IsNotNull:
		return sq.Expr(q + " IS NOT NULL"), nil
	case filter.Like:
		// Wildcards in the value are passed through unescaped.
		return sq.Expr(q+" "+p.like+" ?", args...), nil
	case filter.Contains, filter.StartsWith, filter.EndsWith:
		return sq.Expr(q+" "+p.like+` ? ESCAPE '\'`, pattern(c.Operator, args[0].(string))), nil
	}
	return nil, invariant(p.entity.Name(), c.Column, fmt.Sprintf("unsupported operator %q", c.Operator))
}

// bind coerces every value to the column type. A failure here means validation was skipped.
func (p predicate) bind(col column.Column, c filter.Comparison) ([]any, error) {
	items := c.Value.Items()
	want := c.Operator.Arity()
	switch {
	case want == filter.ArityNone && len(items) != 0,
		want == filter.ArityScalar && len(items) != 1,
		want == filter.ArityPair && len(items) != 2:
		return nil, invariant(p.entity.Name(), c.Column, fmt.Sprintf("%s got %d values", c.Operator, len(items)))
	}

	args := make([]any, len(items))
	for i, v := range items {
		cv, err := col.Type().Coerce(v)
		if err != nil {
			return nil, invariant(p.entity.Name(), c.Column, err.Error())
		}
		args[i] = cv
	}
	if c.Operator.Pattern() && c.Operator != filter.Like {
		if _, ok := args[0].(string); !ok {
			return nil, invariant(p.entity.Name(), c.Column, fmt.Sprintf("%s on a %s column", c.Operator, col.Type()))
		}
	}
	return args, nil
}

func pattern(op filter.Operator, v string) string {
	v = EscapeLike(v)
	switch op {
	case filter.StartsWith:
		return v + "%"
	case filter.EndsWith:
		return "%" + v
	}
	return "%" + v + "%"
}
