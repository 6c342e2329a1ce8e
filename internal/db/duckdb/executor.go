// Package duckdb runs compiled statements on an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	duckdb "github.com/duckdb/duckdb-go/v2"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/viewdex/internal/db"
)

var (
	_ db.Executor  = (*Executor)(nil)
	_ db.Describer = (*Executor)(nil)
)

// Executor implements db.Executor and db.Describer over database/sql.
type Executor struct {
	sql *sql.DB
}

// Open opens a DuckDB database. An empty dsn opens an in-memory database.
func Open(dsn string) (*Executor, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Executor{sql: conn}, nil
}

// New wraps an already opened DuckDB handle. Close closes conn.
func New(conn *sql.DB) *Executor { return &Executor{sql: conn} }

// DB exposes the underlying handle for seeding and migrations.
func (e *Executor) DB() *sql.DB { return e.sql }

// Ping checks connectivity.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.sql.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the database.
func (e *Executor) Close() {
	_ = e.sql.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (e *Executor) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, e, timeout)
}

// Exec runs a statement that returns no rows.
func (e *Executor) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := e.sql.ExecContext(ctx, stmt, args...); err != nil {
		return &db.Error{Op: db.OpQuery, Err: err}
	}
	return nil
}

// Query runs stmt and reads every row.
func (e *Executor) Query(ctx context.Context, stmt string, args ...any) (*db.Rows, error) {
	rows, err := e.sql.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	out := &db.Rows{Columns: cols, Values: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return out, nil
}

// QueryCount runs a single-value COUNT statement.
func (e *Executor) QueryCount(ctx context.Context, stmt string, args ...any) (int64, error) {
	var n int64
	if err := e.sql.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// DescribeView reads the view's columns from information_schema.
func (e *Executor) DescribeView(ctx context.Context, view string) ([]db.ColumnInfo, error) {
	stmt, args, err := db.DescribeQuery(view, sq.Question)
	if err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	rows, err := e.sql.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	defer rows.Close()

	var cols []db.ColumnInfo
	for rows.Next() {
		var c db.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Position); err != nil {
			return nil, &db.Error{Op: db.OpDescribe, Err: err}
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	if len(cols) == 0 {
		return nil, &db.Error{Op: db.OpDescribe, Err: fmt.Errorf("%s: %w", view, db.ErrViewNotFound)}
	}
	return cols, nil
}

// normalize turns driver types into JSON-friendly values.
func normalize(v any) any {
	switch t := v.(type) {
	case duckdb.Decimal:
		if t.Value == nil {
			return nil
		}
		return decimal.NewFromBigInt(t.Value, -int32(t.Scale))
	case []byte:
		return string(t)
	}
	return v
}
