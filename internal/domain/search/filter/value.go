package filter

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Value is the right-hand side of a Comparison.
// Items hold decoded JSON scalars: string, bool or json.Number.
type Value struct {
	list  bool
	items []any
}

// NoValue is the value of isNull/isNotNull comparisons.
func NoValue() Value { return Value{} }

// Scalar wraps a single scalar.
func Scalar(v any) Value { return Value{items: []any{v}} }

// List wraps an ordered sequence of scalars; it may be empty.
func List(vs ...any) Value {
	items := make([]any, len(vs))
	copy(items, vs)
	return Value{list: true, items: items}
}

// Pair wraps the two bounds of a between comparison.
func Pair(lo, hi any) Value { return List(lo, hi) }

// IsList reports whether the value was given as a sequence.
func (v Value) IsList() bool { return v.list }

// IsNone reports whether no value was given.
func (v Value) IsNone() bool { return !v.list && len(v.items) == 0 }

// Scalar returns the single scalar, or nil.
func (v Value) Scalar() any {
	if v.list || len(v.items) == 0 {
		return nil
	}
	return v.items[0]
}

// Items returns a copy of the scalars in order.
func (v Value) Items() []any {
	out := make([]any, len(v.items))
	copy(out, v.items)
	return out
}

// Len returns the number of scalars.
func (v Value) Len() int { return len(v.items) }

// MarshalJSON renders the value in its wire shape.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.list {
		items := make([]any, len(v.items))
		for i, it := range v.items {
			items[i] = wire(it)
		}
		return json.Marshal(items)
	}
	if len(v.items) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(wire(v.items[0]))
}

// wire keeps decimals numeric; decimal.Decimal marshals itself as a string.
func wire(x any) any {
	switch d := x.(type) {
	case decimal.Decimal:
		return json.Number(d.String())
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return json.Number(d.String())
	}
	return x
}
