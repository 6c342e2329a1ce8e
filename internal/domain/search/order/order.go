// Package order models the sort keys of a search request.
package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection parses a direction case-insensitively; empty means ASC.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC", "A":
		return Asc, true
	case "DESC", "D":
		return Desc, true
	}
	return "", false
}

// Key is one sort entry.
type Key struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Spec is an ordered list of sort keys.
type Spec []Key

// Duplicate returns the first column named twice (case-insensitive).
func (s Spec) Duplicate() (string, bool) {
	seen := make(map[string]struct{}, len(s))
	for _, k := range s {
		key := strings.ToLower(strings.TrimSpace(k.Column))
		if _, dup := seen[key]; dup {
			return k.Column, true
		}
		seen[key] = struct{}{}
	}
	return "", false
}

type keyJSON struct {
	Column       string `json:"column"`
	PropertyName string `json:"propertyName"`
	Direction    string `json:"direction"`
}

// Parse decodes a sort list. Items are either {"column","direction"} objects
// or strings in the forms "col", "-col", "col DESC" and "col:desc".
func Parse(raw json.RawMessage) (Spec, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalid("sort must be an array")
	}
	spec := make(Spec, 0, len(items))
	for i, item := range items {
		k, err := parseItem(item)
		if err != nil {
			return nil, invalid(fmt.Sprintf("sort[%d]: %v", i, err))
		}
		if k.Column == "" {
			continue
		}
		spec = append(spec, k)
	}
	return spec, nil
}

func parseItem(raw json.RawMessage) (Key, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseString(s)
	}
	var kj keyJSON
	if err := json.Unmarshal(raw, &kj); err != nil {
		return Key{}, fmt.Errorf("expected a string or object")
	}
	col := strings.TrimSpace(kj.Column)
	if col == "" {
		col = strings.TrimSpace(kj.PropertyName)
	}
	if col == "" {
		return Key{}, fmt.Errorf("column is required")
	}
	dir, ok := ParseDirection(kj.Direction)
	if !ok {
		return Key{}, fmt.Errorf("invalid direction %q", kj.Direction)
	}
	return Key{Column: col, Direction: dir}, nil
}

// ParseString parses the legacy string form of a sort item.
func ParseString(s string) (Key, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Key{}, nil
	case strings.HasPrefix(s, "-"):
		return Key{Column: strings.TrimSpace(s[1:]), Direction: Desc}, nil
	case strings.Count(s, ":") == 1:
		col, d, _ := strings.Cut(s, ":")
		dir, ok := ParseDirection(d)
		if !ok {
			return Key{}, fmt.Errorf("invalid direction %q", d)
		}
		return Key{Column: strings.TrimSpace(col), Direction: dir}, nil
	}
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		return Key{Column: parts[0], Direction: Asc}, nil
	case 2:
		dir, ok := ParseDirection(parts[1])
		if !ok {
			return Key{}, fmt.Errorf("invalid direction %q", parts[1])
		}
		return Key{Column: parts[0], Direction: dir}, nil
	}
	return Key{}, fmt.Errorf("cannot parse sort item %q", s)
}

func invalid(reason string) error {
	return &domain.ViolationError{Kind: domain.ErrSortNotAllowed, Reason: reason}
}
