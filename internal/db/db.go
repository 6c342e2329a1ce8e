package db

import (
	"context"
	"time"
)

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Rows is a fully read result set. Values are in column order.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}

// Executor runs parameterized statements against the backing store.
// Retries and pooling belong to the implementation.
type Executor interface {
	Pinger
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)
	QueryCount(ctx context.Context, sql string, args ...any) (int64, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// ColumnInfo is one column of a view as reported by information_schema.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Position int    `json:"position"`
}

// Describer lists the columns of a view.
type Describer interface {
	DescribeView(ctx context.Context, view string) ([]ColumnInfo, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// SplitView splits db.schema.view into its schema and view parts.
// The catalog part, when present, is dropped: information_schema is per-database.
func SplitView(view string) (schema, name string) {
	last := -1
	for i := len(view) - 1; i >= 0; i-- {
		if view[i] == '.' {
			last = i
			break
		}
	}
	if last < 0 {
		return "", view
	}
	name = view[last+1:]
	rest := view[:last]
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == '.' {
			return rest[i+1:], name
		}
	}
	return rest, name
}
