package filter

import (
	"encoding/json"
	"fmt"
)

// Canonical wire forms. Parse(Marshal(n)) yields a tree equal to n.

type groupJSON struct {
	LogicalOperator string `json:"logicalOperator"`
	Expressions     []Node `json:"expressions"`
}

type notJSON struct {
	Not Node `json:"not"`
}

type comparisonJSON struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    *Value   `json:"value,omitempty"`
}

// MarshalJSON renders the canonical group form; single-child groups are kept.
func (g Group) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(groupJSON{LogicalOperator: g.Op.WireName(), Expressions: children})
}

// MarshalJSON renders {"not": child}.
func (n Not) MarshalJSON() ([]byte, error) {
	return json.Marshal(notJSON{Not: n.Child})
}

// MarshalJSON renders the canonical comparison with the canonical operator name.
func (c Comparison) MarshalJSON() ([]byte, error) {
	out := comparisonJSON{Column: c.Column, Operator: c.Operator}
	if !c.Value.IsNone() {
		v := c.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// Marshal renders a tree in canonical JSON.
func Marshal(n Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("nil filter")
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal filter: %w", err)
	}
	return b, nil
}

// String renders a tree for logs; it never fails.
func String(n Node) string {
	b, err := Marshal(n)
	if err != nil {
		return "<invalid filter>"
	}
	return string(b)
}
