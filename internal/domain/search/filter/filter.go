// Package filter models the logical filter tree callers submit with a search.
//
// A tree is a Group (AND/OR over ordered children), a Not, or a leaf
// Comparison. The set of node types is closed: only this package can
// implement Node, so exhaustive type switches in consumers stay exhaustive.
package filter

import "strings"

// Logic is the combinator of a Group.
type Logic string

// Group combinators.
const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// ParseLogic parses a wire combinator name case-insensitively.
func ParseLogic(s string) (Logic, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return And, true
	case "OR":
		return Or, true
	}
	return "", false
}

// WireName returns the combinator as spelled on the wire ("And"/"Or").
func (l Logic) WireName() string {
	if l == Or {
		return "Or"
	}
	return "And"
}

// Node is a filter tree node: Group, Not or Comparison.
type Node interface {
	node()
}

// Group combines ordered children with AND or OR.
// An empty AND group always matches; an empty OR group never does.
type Group struct {
	Op       Logic
	Children []Node
}

// Not negates its child.
type Not struct {
	Child Node
}

// Comparison tests one column against a value.
type Comparison struct {
	Column   string
	Operator Operator
	Value    Value
}

func (Group) node()      {}
func (Not) node()        {}
func (Comparison) node() {}

// NewAnd returns an AND group over children.
func NewAnd(children ...Node) Group { return Group{Op: And, Children: children} }

// NewOr returns an OR group over children.
func NewOr(children ...Node) Group { return Group{Op: Or, Children: children} }

// MatchAll returns the always-true filter (empty AND group).
func MatchAll() Group { return Group{Op: And, Children: []Node{}} }

// NewNot negates child.
func NewNot(child Node) Not { return Not{Child: child} }

// NewComparison returns a leaf comparison.
func NewComparison(col string, op Operator, v Value) Comparison {
	return Comparison{Column: col, Operator: op, Value: v}
}

// Stats walks the tree and reports its depth and node count.
func Stats(n Node) (depth, nodes int) {
	switch t := n.(type) {
	case Group:
		d := 0
		c := 1
		for _, ch := range t.Children {
			cd, cn := Stats(ch)
			if cd > d {
				d = cd
			}
			c += cn
		}
		return d + 1, c
	case Not:
		cd, cn := Stats(t.Child)
		return cd + 1, cn + 1
	case Comparison:
		return 1, 1
	}
	return 0, 0
}

// Columns returns the column names referenced by comparisons, in traversal order.
func Columns(n Node) []string {
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Group:
			for _, ch := range t.Children {
				walk(ch)
			}
		case Not:
			walk(t.Child)
		case Comparison:
			out = append(out, t.Column)
		}
	}
	walk(n)
	return out
}
