// Package postgres runs compiled statements on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/viewdex/internal/db"
)

var (
	_ db.Executor  = (*Executor)(nil)
	_ db.Describer = (*Executor)(nil)
)

// Config holds pool parameters.
type Config struct {
	DSN      string
	MaxConns int32
}

// Executor implements db.Executor and db.Describer over pgxpool.
type Executor struct {
	pool *pgxpool.Pool
}

// New creates the pool. It does not wait for the server; see WaitForReady.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &Executor{pool: pool}, nil
}

// Ping checks connectivity.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the pool.
func (e *Executor) Close() {
	e.pool.Close()
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (e *Executor) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, e, timeout)
}

// Query runs sql and reads every row.
func (e *Executor) Query(ctx context.Context, sql string, args ...any) (*db.Rows, error) {
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	out := &db.Rows{Columns: make([]string, len(fds)), Values: [][]any{}}
	for i, fd := range fds {
		out.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
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
func (e *Executor) QueryCount(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := e.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: err}
	}
	return n, nil
}

// DescribeView reads the view's columns from information_schema.
func (e *Executor) DescribeView(ctx context.Context, view string) ([]db.ColumnInfo, error) {
	sql, args, err := db.DescribeQuery(view, sq.Dollar)
	if err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	rows, err := e.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.ColumnInfo, error) {
		var c db.ColumnInfo
		var pos int32
		if err := row.Scan(&c.Name, &c.DataType, &pos); err != nil {
			return c, err
		}
		c.Position = int(pos)
		return c, nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpDescribe, Err: err}
	}
	if len(cols) == 0 {
		return nil, &db.Error{Op: db.OpDescribe, Err: fmt.Errorf("%s: %w", view, db.ErrViewNotFound)}
	}
	return cols, nil
}

// normalize turns pgx wire types into JSON-friendly values.
func normalize(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		if t.NaN || t.InfinityModifier != pgtype.Finite {
			f, err := t.Float64Value()
			if err != nil {
				return nil
			}
			return f.Float64
		}
		return decimal.NewFromBigInt(t.Int, t.Exp)
	case [16]byte:
		return uuid.UUID(t).String()
	}
	return v
}
