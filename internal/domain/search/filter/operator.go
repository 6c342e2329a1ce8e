package filter

import "strings"

// Operator is a canonical comparison operator.
type Operator string

// Canonical operators.
const (
	Eq         Operator = "eq"
	Neq        Operator = "neq"
	Gt         Operator = "gt"
	Gte        Operator = "gte"
	Lt         Operator = "lt"
	Lte        Operator = "lte"
	In         Operator = "in"
	NotIn      Operator = "notIn"
	Like       Operator = "like"
	IsNull     Operator = "isNull"
	IsNotNull  Operator = "isNotNull"
	Between    Operator = "between"
	Contains   Operator = "contains"
	StartsWith Operator = "startsWith"
	EndsWith   Operator = "endsWith"
)

// Arity describes the value shape an operator takes.
type Arity int

// Value shapes.
const (
	ArityNone   Arity = iota // no value (isNull, isNotNull)
	ArityScalar              // one scalar
	ArityList                // ordered sequence, possibly empty (in, notIn)
	ArityPair                // exactly two scalars (between)
)

// operatorNames maps lower-cased wire names, including legacy codes, to canonical operators.
var operatorNames = map[string]Operator{
	"eq":         Eq,
	"neq":        Neq,
	"ne":         Neq,
	"gt":         Gt,
	"gte":        Gte,
	"lt":         Lt,
	"lte":        Lte,
	"in":         In,
	"notin":      NotIn,
	"nin":        NotIn,
	"like":       Like,
	"isnull":     IsNull,
	"isnotnull":  IsNotNull,
	"between":    Between,
	"contains":   Contains,
	"lk":         Contains,
	"startswith": StartsWith,
	"sw":         StartsWith,
	"endswith":   EndsWith,
	"ew":         EndsWith,
}

// ParseOperator canonicalizes a wire operator name (case-insensitive).
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorNames[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Arity returns the value shape the operator takes.
func (o Operator) Arity() Arity {
	switch o {
	case IsNull, IsNotNull:
		return ArityNone
	case In, NotIn:
		return ArityList
	case Between:
		return ArityPair
	}
	return ArityScalar
}

// Ordering reports whether the operator needs an orderable column type.
func (o Operator) Ordering() bool {
	switch o {
	case Gt, Gte, Lt, Lte, Between:
		return true
	}
	return false
}

// Pattern reports whether the operator is a LIKE-family string match.
func (o Operator) Pattern() bool {
	switch o {
	case Like, Contains, StartsWith, EndsWith:
		return true
	}
	return false
}

// Operators lists the canonical operators in wire order.
func Operators() []Operator {
	return []Operator{
		Eq, Neq, Gt, Gte, Lt, Lte, In, NotIn, Between,
		IsNull, IsNotNull, Like, Contains, StartsWith, EndsWith,
	}
}
