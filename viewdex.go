// Package viewdex is an embeddable search engine over database views.
//
// Entities map public names onto views; every column declares its type and
// whether it may be filtered, sorted or returned. Requests are validated
// against that registry and the caller's column policy, then compiled into
// parameterized SQL. Values never reach the SQL text.
//
//	eng, _ := viewdex.New(ctx,
//	    viewdex.WithPostgres(dsn),
//	    viewdex.WithViewsFile("config/views.yaml", true),
//	    viewdex.WithPolicyFile("config/policy.csv", "public"),
//	)
//	defer eng.Close()
//
//	res, _ := eng.Query("County").
//	    Where(viewdex.Eq("state", "CA")).
//	    Where(viewdex.Gt("population", 100000)).
//	    OrderBy("population", viewdex.Desc).
//	    Limit(50).
//	    Do(ctx)
//
// The same requests can be sent as JSON to the viewdex HTTP server
// (cmd/viewdex); Query.JSON renders that wire form.
package viewdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/db"
	dbDuckDB "github.com/kailas-cloud/viewdex/internal/db/duckdb"
	dbPostgres "github.com/kailas-cloud/viewdex/internal/db/postgres"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/query"
	"github.com/kailas-cloud/viewdex/internal/repository/catalog"
	"github.com/kailas-cloud/viewdex/internal/typegen"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

const defaultReadinessTimeout = 10 * time.Second

// backend is an executor the Engine owns.
type backend interface {
	db.Executor
	db.Describer
}

// Engine runs searches against one registry of entities.
type Engine struct {
	exec   backend
	reg    *registry.Registry
	search *searchuc.Service
	obs    *observer
}

// Result is one page of matching rows. Rows are aligned with Columns.
type Result struct {
	Entity      string
	View        string
	Columns     []string
	Rows        [][]any
	Total       int64 // -1 when counting is disabled
	Offset      int
	Limit       int
	MaxPageSize int
}

// Maps returns the rows keyed by column name.
func (r Result) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			if j < len(row) {
				m[c] = row[j]
			}
		}
		out[i] = m
	}
	return out
}

// Statement is the SQL a search compiles to, with its positional parameters.
type Statement struct {
	SQL         string
	Params      []any
	CountSQL    string
	CountParams []any
	View        string
	Limit       int
	MaxPageSize int
}

// New creates an Engine. Without WithPostgres or WithDuckDB the engine only compiles.
// The provided context is used for connecting and column discovery.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	exec, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	eng := &Engine{exec: exec, obs: obs}

	if err := eng.wire(ctx, cfg, logger); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

func openBackend(ctx context.Context, cfg *engineConfig) (backend, error) {
	var exec backend
	switch cfg.driver {
	case "":
		return nil, nil
	case "postgres":
		pg, err := dbPostgres.New(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return nil, fmt.Errorf("viewdex: open postgres: %w", err)
		}
		exec = pg
	case "duckdb":
		if cfg.conn != nil {
			exec = dbDuckDB.New(cfg.conn)
			break
		}
		duck, err := dbDuckDB.Open(cfg.dsn)
		if err != nil {
			return nil, fmt.Errorf("viewdex: open duckdb: %w", err)
		}
		exec = duck
	default:
		return nil, fmt.Errorf("viewdex: unknown driver %q", cfg.driver)
	}

	if err := exec.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		exec.Close()
		return nil, fmt.Errorf("viewdex: database not ready: %w", err)
	}
	return exec, nil
}

func (e *Engine) wire(ctx context.Context, cfg *engineConfig, logger *zap.Logger) error {
	var entities []registry.Entity
	if cfg.viewsFile != "" {
		var describer db.Describer
		if cfg.discover && e.exec != nil {
			describer = e.exec
		}
		fileReg, err := catalog.New(describer, logger).Load(ctx, cfg.viewsFile)
		if err != nil {
			return fmt.Errorf("viewdex: load views: %w", err)
		}
		entities = append(entities, fileReg.Entities()...)
	}
	for _, def := range cfg.entities {
		ent, err := def.build()
		if err != nil {
			return fmt.Errorf("viewdex: %w", err)
		}
		entities = append(entities, ent)
	}
	if len(entities) == 0 {
		return errors.New("viewdex: no entities registered (use WithViewsFile or WithEntity)")
	}
	reg, err := registry.New(entities...)
	if err != nil {
		return fmt.Errorf("viewdex: %w", err)
	}
	e.reg = reg

	// Pass nil interfaces (not typed nil pointers) for absent components.
	var policy searchuc.Policy
	switch {
	case cfg.policyFile != "":
		p, err := access.Load(cfg.policyFile, cfg.defaultRoles...)
		if err != nil {
			return fmt.Errorf("viewdex: %w", err)
		}
		policy = p
	case len(cfg.policyRules) > 0:
		p, err := access.FromRules(cfg.policyRules, nil, cfg.defaultRoles...)
		if err != nil {
			return fmt.Errorf("viewdex: %w", err)
		}
		policy = p
	}
	var exec searchuc.Executor
	if e.exec != nil {
		exec = e.exec
	}

	dialect, err := dialectFor(cfg)
	if err != nil {
		return err
	}
	e.search = searchuc.New(
		reg,
		validate.New(reg, validate.PageBounds{DefaultLimit: cfg.defaultPageSize, GlobalMaxLimit: cfg.maxPageSize}),
		query.New(reg, query.Options{Dialect: dialect, UseILike: cfg.useILike}),
		exec, policy, logger,
	).WithLimits(filter.Limits{MaxDepth: cfg.maxDepth, MaxNodes: cfg.maxNodes, MaxValues: cfg.maxValues}).
		WithCount(!cfg.skipCount)
	return nil
}

func dialectFor(cfg *engineConfig) (query.Dialect, error) {
	if cfg.dialect != "" {
		d, ok := query.ParseDialect(cfg.dialect)
		if !ok {
			return query.Dialect{}, fmt.Errorf("viewdex: unknown dialect %q", cfg.dialect)
		}
		return d, nil
	}
	switch cfg.driver {
	case "postgres":
		return query.Postgres, nil
	case "duckdb":
		return query.DuckDB, nil
	}
	return query.Generic, nil
}

// Close releases the database connection.
func (e *Engine) Close() {
	if e.exec != nil {
		e.exec.Close()
	}
}

// Ping checks database connectivity.
func (e *Engine) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { e.obs.observe("ping", "", start, err) }()

	if e.exec == nil {
		return ErrExecutionDisabled
	}
	if err = e.exec.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Query starts a fluent search over entity.
func (e *Engine) Query(entity string) *Query {
	return &Query{eng: e, entity: entity}
}

// Search runs a JSON search request.
func (e *Engine) Search(ctx context.Context, s Subject, body []byte) (res Result, err error) {
	start := time.Now()
	defer func() { e.obs.observe("search", res.Entity, start, err) }()

	r, err := e.search.Search(ctx, access.Subject{ID: s.ID, Roles: s.Roles}, body)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Entity:      r.Entity,
		View:        r.View,
		Columns:     r.Columns,
		Rows:        r.Rows,
		Total:       r.Total,
		Offset:      r.Page.Offset,
		Limit:       r.PageSizeApplied,
		MaxPageSize: r.MaxPageSize,
	}, nil
}

// Compile returns the SQL a JSON search request compiles to, without executing it.
func (e *Engine) Compile(ctx context.Context, s Subject, body []byte) (stmt Statement, err error) {
	start := time.Now()
	defer func() { e.obs.observe("compile", stmt.View, start, err) }()

	p, err := e.search.Compile(ctx, access.Subject{ID: s.ID, Roles: s.Roles}, body)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:         p.SQL,
		Params:      p.Params,
		CountSQL:    p.CountSQL,
		CountParams: p.CountParams,
		View:        p.MappedView,
		Limit:       p.PageSizeApplied,
		MaxPageSize: p.MaxPageSize,
	}, nil
}

// Entities lists the entities s can see, with only the columns s may reference.
func (e *Engine) Entities(s Subject) ([]EntityInfo, error) {
	subject := access.Subject{ID: s.ID, Roles: s.Roles}
	visible, err := e.search.Entities(subject)
	if err != nil {
		return nil, err
	}
	out := make([]EntityInfo, 0, len(visible))
	for _, ent := range visible {
		_, cols, err := e.search.AllowedColumns(subject, ent.Name())
		if err != nil {
			return nil, err
		}
		info := EntityInfo{
			Name:        ent.Name(),
			View:        ent.View(),
			Description: ent.Description(),
			MaxPageSize: e.search.MaxPageSize(ent),
			DefaultSort: ent.DefaultSort().Name(),
			Columns:     make([]ColumnDef, len(cols)),
		}
		for i, c := range cols {
			info.Columns[i] = columnDef(c)
		}
		out = append(out, info)
	}
	return out, nil
}

// WriteTypeScript writes request and row types for every registered entity.
func (e *Engine) WriteTypeScript(w io.Writer) error {
	return typegen.Generate(w, e.reg.Entities())
}
