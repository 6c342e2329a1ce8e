package viewdex

import (
	"encoding/json"

	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
)

// Filter is a predicate tree over entity columns. Build it with the
// comparison constructors and combine with And, Or and Not.
// The zero Filter matches every row.
type Filter struct {
	node filter.Node
}

// ParseFilter decodes a filter from its JSON wire form.
func ParseFilter(data []byte) (Filter, error) {
	n, err := filter.Parse(data, filter.Limits{})
	if err != nil {
		return Filter{}, err
	}
	return Filter{node: n}, nil
}

// MarshalJSON renders the canonical wire form.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.tree())
}

// String renders the filter for logs.
func (f Filter) String() string { return filter.String(f.tree()) }

func (f Filter) tree() filter.Node {
	if f.node == nil {
		return filter.MatchAll()
	}
	return f.node
}

// MatchAll matches every row.
func MatchAll() Filter { return Filter{node: filter.MatchAll()} }

// And matches rows that satisfy every filter. And() matches every row.
func And(fs ...Filter) Filter { return Filter{node: filter.NewAnd(nodes(fs)...)} }

// Or matches rows that satisfy at least one filter. Or() matches no row.
func Or(fs ...Filter) Filter { return Filter{node: filter.NewOr(nodes(fs)...)} }

// Not negates f.
func Not(f Filter) Filter { return Filter{node: filter.NewNot(f.tree())} }

// Eq matches column = v.
func Eq(col string, v any) Filter { return compare(col, filter.Eq, filter.Scalar(v)) }

// Neq matches column <> v.
func Neq(col string, v any) Filter { return compare(col, filter.Neq, filter.Scalar(v)) }

// Gt matches column > v.
func Gt(col string, v any) Filter { return compare(col, filter.Gt, filter.Scalar(v)) }

// Gte matches column >= v.
func Gte(col string, v any) Filter { return compare(col, filter.Gte, filter.Scalar(v)) }

// Lt matches column < v.
func Lt(col string, v any) Filter { return compare(col, filter.Lt, filter.Scalar(v)) }

// Lte matches column <= v.
func Lte(col string, v any) Filter { return compare(col, filter.Lte, filter.Scalar(v)) }

// In matches column IN (vs...).
func In(col string, vs ...any) Filter { return compare(col, filter.In, filter.List(vs...)) }

// NotIn matches column NOT IN (vs...).
func NotIn(col string, vs ...any) Filter { return compare(col, filter.NotIn, filter.List(vs...)) }

// Between matches lo <= column <= hi.
func Between(col string, lo, hi any) Filter {
	return compare(col, filter.Between, filter.Pair(lo, hi))
}

// IsNull matches rows where column is NULL.
func IsNull(col string) Filter { return compare(col, filter.IsNull, filter.NoValue()) }

// IsNotNull matches rows where column is not NULL.
func IsNotNull(col string) Filter { return compare(col, filter.IsNotNull, filter.NoValue()) }

// Like matches column against a raw LIKE pattern; % and _ are wildcards.
func Like(col, pattern string) Filter { return compare(col, filter.Like, filter.Scalar(pattern)) }

// Contains matches column containing s literally.
func Contains(col, s string) Filter { return compare(col, filter.Contains, filter.Scalar(s)) }

// StartsWith matches column beginning with s literally.
func StartsWith(col, s string) Filter { return compare(col, filter.StartsWith, filter.Scalar(s)) }

// EndsWith matches column ending with s literally.
func EndsWith(col, s string) Filter { return compare(col, filter.EndsWith, filter.Scalar(s)) }

func compare(col string, op filter.Operator, v filter.Value) Filter {
	return Filter{node: filter.NewComparison(col, op, v)}
}

func nodes(fs []Filter) []filter.Node {
	out := make([]filter.Node, len(fs))
	for i, f := range fs {
		out[i] = f.tree()
	}
	return out
}
