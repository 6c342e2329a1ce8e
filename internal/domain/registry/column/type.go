package column

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the semantic type of a column.
type Type string

// Semantic types.
const (
	String    Type = "string"
	Integer   Type = "integer"
	Decimal   Type = "decimal"
	Boolean   Type = "boolean"
	Date      Type = "date"
	Timestamp Type = "timestamp"
)

// Types lists every semantic type in declaration order.
var Types = []Type{String, Integer, Decimal, Boolean, Date, Timestamp}

// DateLayout is the accepted wire format of date values.
const DateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Valid reports whether t is a known semantic type.
func (t Type) Valid() bool {
	switch t {
	case String, Integer, Decimal, Boolean, Date, Timestamp:
		return true
	}
	return false
}

// Orderable reports whether range operators apply to t.
func (t Type) Orderable() bool {
	switch t {
	case Integer, Decimal, Date, Timestamp:
		return true
	}
	return false
}

// ParseType parses a semantic type name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown column type %q", s)
	}
	return t, nil
}

// FromSQLType maps an information_schema data type to a semantic type.
// The second result is false for types the catalog does not expose.
func FromSQLType(dataType string) (Type, bool) {
	dt := strings.ToUpper(strings.TrimSpace(dataType))
	if i := strings.IndexByte(dt, '('); i >= 0 {
		dt = strings.TrimSpace(dt[:i])
	}
	switch {
	case dt == "BOOLEAN" || dt == "BOOL":
		return Boolean, true
	case dt == "DATE":
		return Date, true
	case strings.HasPrefix(dt, "TIMESTAMP") || dt == "DATETIME":
		return Timestamp, true
	case dt == "TEXT" || dt == "UUID" || strings.Contains(dt, "CHAR") || dt == "STRING":
		return String, true
	case dt == "BIGINT" || dt == "INTEGER" || dt == "INT" || dt == "SMALLINT" ||
		dt == "TINYINT" || dt == "HUGEINT" || dt == "INT2" || dt == "INT4" || dt == "INT8":
		return Integer, true
	case dt == "NUMBER" || dt == "NUMERIC" || dt == "DECIMAL" || dt == "REAL" ||
		dt == "DOUBLE" || dt == "DOUBLE PRECISION" || dt == "FLOAT" || dt == "FLOAT4" || dt == "FLOAT8":
		return Decimal, true
	}
	return "", false
}

// Coerce converts a decoded JSON scalar into the Go value bound for a column of type t.
// Strings are never converted to numbers and numbers are never converted to strings.
func (t Type) Coerce(v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("null is not a %s value", t)
	}
	switch t {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", describe(v))
		}
		return s, nil
	case Integer:
		return coerceInteger(v)
	case Decimal:
		return coerceDecimal(v)
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %s", describe(v))
		}
		return b, nil
	case Date:
		return coerceTime(v, DateLayout)
	case Timestamp:
		return coerceTime(v, timestampLayouts...)
	}
	return nil, fmt.Errorf("unsupported column type %q", t)
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %s", n.String())
		}
		return i, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	}
	return nil, fmt.Errorf("expected integer, got %s", describe(v))
}

func coerceDecimal(v any) (any, error) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, fmt.Errorf("expected decimal, got %s", n.String())
		}
		return d, nil
	case decimal.Decimal:
		return n, nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	}
	return nil, fmt.Errorf("expected decimal, got %s", describe(v))
}

func coerceTime(v any, layouts ...string) (any, error) {
	switch s := v.(type) {
	case time.Time:
		return s, nil
	case string:
		for _, l := range layouts {
			if ts, err := time.Parse(l, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as %s", s, layouts[0])
	}
	return nil, fmt.Errorf("expected date/time string, got %s", describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, int, int32, int64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
