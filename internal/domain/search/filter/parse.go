package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// Default tree bounds.
const (
	DefaultMaxDepth  = 20
	DefaultMaxNodes  = 500
	DefaultMaxValues = 10000
)

// Limits bounds untrusted trees. Zero fields fall back to the defaults.
type Limits struct {
	MaxDepth int
	MaxNodes int
	// MaxValues caps the comparison values across the whole tree, each of
	// which becomes one bind parameter.
	MaxValues int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = DefaultMaxNodes
	}
	if l.MaxValues <= 0 {
		l.MaxValues = DefaultMaxValues
	}
	return l
}

// Wire field names.
const (
	keyLogic       = "logicalOperator"
	keyExpressions = "expressions"
	keyCollections = "collections"
	keyNot         = "not"
	keyColumn      = "column"
	keyProperty    = "propertyName"
	keyOperator    = "operator"
	keyValue       = "value"
)

var (
	groupKeys      = map[string]bool{keyLogic: true, keyExpressions: true, keyCollections: true}
	notKeys        = map[string]bool{keyNot: true}
	comparisonKeys = map[string]bool{keyColumn: true, keyProperty: true, keyOperator: true, keyValue: true}
)

// Parse decodes a JSON filter document into a tree.
// Failures wrap domain.ErrMalformedFilter. Column names are not checked here.
func Parse(data []byte, lim Limits) (Node, error) {
	p := &parser{lim: lim.withDefaults()}
	return p.parse(json.RawMessage(bytes.TrimSpace(data)), "$", 1)
}

type parser struct {
	lim    Limits
	nodes  int
	values int
}

func (p *parser) parse(raw json.RawMessage, path string, depth int) (Node, error) {
	if depth > p.lim.MaxDepth {
		return nil, domain.NewMalformed(path, fmt.Sprintf("nesting deeper than %d", p.lim.MaxDepth))
	}
	p.nodes++
	if p.nodes > p.lim.MaxNodes {
		return nil, domain.NewMalformed(path, fmt.Sprintf("more than %d nodes", p.lim.MaxNodes))
	}

	obj, ok := decodeObject(raw)
	if !ok {
		return nil, domain.NewMalformed(path, "expected an object")
	}

	switch {
	case has(obj, keyNot):
		if err := onlyKeys(obj, notKeys, path); err != nil {
			return nil, err
		}
		child, err := p.parse(obj[keyNot], path+"."+keyNot, depth+1)
		if err != nil {
			return nil, err
		}
		return Not{Child: child}, nil
	case has(obj, keyExpressions) || has(obj, keyCollections) || has(obj, keyLogic):
		if err := onlyKeys(obj, groupKeys, path); err != nil {
			return nil, err
		}
		return p.parseGroup(obj, path, depth)
	case has(obj, keyColumn) || has(obj, keyProperty) || has(obj, keyOperator):
		if err := onlyKeys(obj, comparisonKeys, path); err != nil {
			return nil, err
		}
		return p.parseComparison(obj, path)
	}
	return nil, domain.NewMalformed(path, "object is not a group, not or comparison")
}

func (p *parser) parseGroup(obj map[string]json.RawMessage, path string, depth int) (Node, error) {
	g := Group{Op: And, Children: []Node{}}

	if raw, ok := obj[keyLogic]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, domain.NewMalformed(path+"."+keyLogic, "expected a string")
		}
		op, ok := ParseLogic(s)
		if !ok {
			return nil, domain.NewMalformed(path+"."+keyLogic, fmt.Sprintf("unrecognized logical operator %q", s))
		}
		g.Op = op
	}

	// Legacy "collections" children follow "expressions".
	for _, key := range []string{keyExpressions, keyCollections} {
		raw, ok := obj[key]
		if !ok || isNull(raw) {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, domain.NewMalformed(path+"."+key, "expected an array")
		}
		for i, item := range items {
			child, err := p.parse(item, fmt.Sprintf("%s.%s[%d]", path, key, i), depth+1)
			if err != nil {
				return nil, err
			}
			g.Children = append(g.Children, child)
		}
	}
	return g, nil
}

func (p *parser) parseComparison(obj map[string]json.RawMessage, path string) (Node, error) {
	col, err := columnName(obj, path)
	if err != nil {
		return nil, err
	}

	var opName string
	raw, ok := obj[keyOperator]
	if !ok || json.Unmarshal(raw, &opName) != nil {
		return nil, domain.NewMalformed(path+"."+keyOperator, "operator must be a string")
	}
	op, ok := ParseOperator(opName)
	if !ok {
		return nil, &domain.ViolationError{
			Kind: domain.ErrMalformedFilter, Path: path + "." + keyOperator,
			Column: col, Operator: opName, Reason: "unrecognized operator",
		}
	}

	val, err := p.parseValue(obj[keyValue], op, path+"."+keyValue)
	if err != nil {
		return nil, err
	}
	return Comparison{Column: col, Operator: op, Value: val}, nil
}

func columnName(obj map[string]json.RawMessage, path string) (string, error) {
	var col, alias string
	if raw, ok := obj[keyColumn]; ok {
		if json.Unmarshal(raw, &col) != nil || col == "" {
			return "", domain.NewMalformed(path+"."+keyColumn, "column must be a non-empty string")
		}
	}
	if raw, ok := obj[keyProperty]; ok {
		if json.Unmarshal(raw, &alias) != nil || alias == "" {
			return "", domain.NewMalformed(path+"."+keyProperty, "propertyName must be a non-empty string")
		}
	}
	switch {
	case col != "" && alias != "" && col != alias:
		return "", domain.NewMalformed(path, "column and propertyName disagree")
	case col != "":
		return col, nil
	case alias != "":
		return alias, nil
	}
	return "", domain.NewMalformed(path+"."+keyColumn, "column is required")
}

func (p *parser) parseValue(raw json.RawMessage, op Operator, path string) (Value, error) {
	absent := raw == nil || isNull(raw)

	switch op.Arity() {
	case ArityNone:
		if !absent {
			return Value{}, domain.NewMalformed(path, fmt.Sprintf("%s takes no value", op))
		}
		return NoValue(), nil
	case ArityScalar:
		if absent {
			return Value{}, domain.NewMalformed(path, fmt.Sprintf("%s requires a value", op))
		}
		v, err := decodeScalar(raw)
		if err != nil {
			return Value{}, domain.NewMalformed(path, fmt.Sprintf("%s requires a scalar: %v", op, err))
		}
		if err := p.spend(1, path); err != nil {
			return Value{}, err
		}
		return Scalar(v), nil
	}

	var items []json.RawMessage
	if absent || json.Unmarshal(raw, &items) != nil {
		return Value{}, domain.NewMalformed(path, fmt.Sprintf("%s requires an array", op))
	}
	if op.Arity() == ArityPair && len(items) != 2 {
		return Value{}, domain.NewMalformed(path, fmt.Sprintf("%s requires exactly 2 values, got %d", op, len(items)))
	}
	if err := p.spend(len(items), path); err != nil {
		return Value{}, err
	}
	vals := make([]any, len(items))
	for i, item := range items {
		v, err := decodeScalar(item)
		if err != nil {
			return Value{}, domain.NewMalformed(fmt.Sprintf("%s[%d]", path, i), err.Error())
		}
		vals[i] = v
	}
	return List(vals...), nil
}

// spend charges n values against the tree's value budget.
func (p *parser) spend(n int, path string) error {
	p.values += n
	if p.values > p.lim.MaxValues {
		return domain.NewMalformed(path, fmt.Sprintf("more than %d values", p.lim.MaxValues))
	}
	return nil
}

// decodeScalar decodes a JSON string, number or boolean. Numbers stay json.Number.
func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON value")
	}
	switch v.(type) {
	case string, bool, json.Number:
		return v, nil
	case nil:
		return nil, fmt.Errorf("null is not allowed here")
	}
	return nil, fmt.Errorf("nested arrays and objects are not allowed")
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil || m == nil {
		return nil, false
	}
	return m, true
}

func onlyKeys(obj map[string]json.RawMessage, allowed map[string]bool, path string) error {
	var unexpected []string
	for k := range obj {
		if !allowed[k] {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) == 0 {
		return nil
	}
	sort.Strings(unexpected)
	return domain.NewMalformed(path, fmt.Sprintf("unexpected field %q", unexpected[0]))
}

func has(obj map[string]json.RawMessage, key string) bool {
	_, ok := obj[key]
	return ok
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
