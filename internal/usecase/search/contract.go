package search

import (
	"context"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/db"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// Executor runs compiled statements.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (*db.Rows, error)
	QueryCount(ctx context.Context, sql string, args ...any) (int64, error)
}

// Policy resolves the per-caller column allow-list.
type Policy interface {
	AllowedColumns(s access.Subject, e registry.Entity) (validate.Allowed, error)
}
