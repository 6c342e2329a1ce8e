package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/config"
	"github.com/kailas-cloud/viewdex/internal/db"
	dbDuckDB "github.com/kailas-cloud/viewdex/internal/db/duckdb"
	dbPostgres "github.com/kailas-cloud/viewdex/internal/db/postgres"
	dbValkey "github.com/kailas-cloud/viewdex/internal/db/valkey"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/metrics"
	"github.com/kailas-cloud/viewdex/internal/query"
	"github.com/kailas-cloud/viewdex/internal/repository/catalog"
	"github.com/kailas-cloud/viewdex/internal/repository/columncache"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// executor is what the composition root needs from a database backend.
type executor interface {
	db.Executor
	db.Describer
}

// app holds the components shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	exec   executor
	cache  *dbValkey.Store
	reg    *registry.Registry
	policy *access.Policy
	search *searchuc.Service
}

// newApp wires storage, the catalog and the search pipeline. The caller must Close it.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	metrics.RegisterSearchMetrics()

	if err := a.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		return nil, err
	}
	if err := a.loadCatalog(ctx); err != nil {
		return nil, err
	}
	if err := a.loadPolicy(); err != nil {
		return nil, err
	}
	a.buildSearch()

	ok = true
	return a, nil
}

func (a *app) openDatabase(ctx context.Context) error {
	dbCfg := a.cfg.Database
	switch dbCfg.Driver {
	case config.DriverPostgres:
		pg, err := dbPostgres.New(ctx, dbPostgres.Config{DSN: dbCfg.DSN, MaxConns: dbCfg.MaxConns})
		if err != nil {
			return fmt.Errorf("failed to open postgres: %w", err)
		}
		a.exec = pg
	case config.DriverDuckDB:
		duck, err := dbDuckDB.Open(dbCfg.DSN)
		if err != nil {
			return fmt.Errorf("failed to open duckdb: %w", err)
		}
		a.exec = duck
	case config.DriverNone:
		a.logger.Info("Execution disabled: no database configured")
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", dbCfg.Driver)
	}

	timeout := time.Duration(dbCfg.ReadinessTimeout) * time.Second
	if err := a.exec.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database",
		zap.String("driver", dbCfg.Driver),
		zap.String("dialect", a.cfg.Dialect().Name),
	)
	return nil
}

func (a *app) openCache(ctx context.Context) error {
	c := a.cfg.Cache
	if !c.Enabled {
		return nil
	}
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    c.Addrs,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	})
	if err != nil {
		return fmt.Errorf("failed to create cache store: %w", err)
	}
	a.cache = store
	if err := store.WaitForReady(ctx, time.Duration(a.cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("cache not ready: %w", err)
	}
	a.logger.Info("Connected to cache", zap.Strings("addrs", c.Addrs))
	return nil
}

func (a *app) loadCatalog(ctx context.Context) error {
	var describer db.Describer
	if a.cfg.Catalog.Discover && a.exec != nil {
		describer = a.exec
		if a.cache != nil {
			describer = columncache.New(
				a.exec, a.cache, a.cfg.Cache.KeyPrefix,
				time.Duration(a.cfg.Catalog.CacheTTLSec)*time.Second,
				metrics.ColumnCacheTotal, a.logger,
			)
		}
	}

	reg, err := catalog.New(describer, a.logger).Load(ctx, a.cfg.Catalog.ViewsFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.reg = reg
	return nil
}

func (a *app) loadPolicy() error {
	if a.cfg.Access.PolicyFile == "" {
		a.logger.Warn("No access policy configured: every column is allowed")
		return nil
	}
	var defaults []string
	if a.cfg.Access.DefaultRole != "" {
		defaults = append(defaults, a.cfg.Access.DefaultRole)
	}
	p, err := access.Load(a.cfg.Access.PolicyFile, defaults...)
	if err != nil {
		return err
	}
	a.policy = p
	return nil
}

func (a *app) buildSearch() {
	// Pass nil interfaces (not typed nil pointers) when a component is absent.
	var exec searchuc.Executor
	if a.exec != nil {
		exec = a.exec
	}
	var policy searchuc.Policy
	if a.policy != nil {
		policy = a.policy
	}

	s := a.cfg.Search
	a.search = searchuc.New(
		a.reg,
		validate.New(a.reg, validate.PageBounds{
			DefaultLimit:   s.DefaultPageSize,
			GlobalMaxLimit: s.GlobalMaxPageSize,
		}),
		query.New(a.reg, query.Options{Dialect: a.cfg.Dialect(), UseILike: s.UseILike}),
		exec, policy, a.logger,
	).WithLimits(filter.Limits{MaxDepth: s.MaxDepth, MaxNodes: s.MaxNodes, MaxValues: s.MaxValues}).
		WithCount(!s.SkipCount)
}

// entityNames lists the registered entities for health reports.
func (a *app) entityNames() []string {
	entities := a.reg.Entities()
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name()
	}
	return names
}

// Close releases the database and cache connections.
func (a *app) Close() {
	if a.exec != nil {
		a.exec.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
