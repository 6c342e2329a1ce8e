package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
	"github.com/kailas-cloud/viewdex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/viewdex/internal/logger"
	"github.com/kailas-cloud/viewdex/internal/metrics"
	"github.com/kailas-cloud/viewdex/internal/query"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// ErrExecutionDisabled is returned by Search when no executor is configured.
var ErrExecutionDisabled = errors.New("execution disabled")

// Result is one page of matching rows.
type Result struct {
	Entity          string
	View            string
	Columns         []string
	Rows            [][]any
	Total           int64
	Page            page.Window
	MaxPageSize     int
	PageSizeApplied int
}

// Preview is a compiled statement that was not executed.
type Preview struct {
	SQL             string
	Params          []any
	CountSQL        string
	CountParams     []any
	PageSizeApplied int
	MaxPageSize     int
	MappedView      string
}

// Service runs the parse, validate, compile and execute pipeline.
type Service struct {
	reg       *registry.Registry
	validator *validate.Validator
	builder   *query.Builder
	exec      Executor
	policy    Policy
	limits    filter.Limits
	withCount bool
	logger    *zap.Logger
}

// New creates a search service. exec may be nil (compile only); policy may be nil (allow all columns).
func New(
	reg *registry.Registry,
	validator *validate.Validator,
	builder *query.Builder,
	exec Executor,
	policy Policy,
	logger *zap.Logger,
) *Service {
	return &Service{
		reg:       reg,
		validator: validator,
		builder:   builder,
		exec:      exec,
		policy:    policy,
		withCount: true,
		logger:    logger,
	}
}

// WithLimits sets the filter tree bounds.
func (s *Service) WithLimits(l filter.Limits) *Service {
	s.limits = l
	return s
}

// WithCount toggles the COUNT(*) query that fills Result.Total.
func (s *Service) WithCount(enabled bool) *Service {
	s.withCount = enabled
	return s
}

// MaxPageSize returns the effective page cap for e.
func (s *Service) MaxPageSize(e registry.Entity) int { return s.validator.Bounds().MaxLimit(e) }

// Limits returns the filter size limits applied when parsing requests.
func (s *Service) Limits() filter.Limits { return s.limits }

// Registry returns the registry the service searches.
func (s *Service) Registry() *registry.Registry { return s.reg }

// Search parses body, checks it against the caller's allow-list, then runs the query.
func (s *Service) Search(ctx context.Context, subject access.Subject, body []byte) (Result, error) {
	start := time.Now()
	entityLabel := "unknown"
	res, err := s.search(ctx, subject, body, &entityLabel)
	s.observe(ctx, "search", entityLabel, start, err)
	if err == nil {
		metrics.SearchRowsReturned.WithLabelValues(entityLabel).Observe(float64(len(res.Rows)))
	}
	return res, err
}

func (s *Service) search(ctx context.Context, subject access.Subject, body []byte, entityLabel *string) (Result, error) {
	if s.exec == nil {
		return Result{}, ErrExecutionDisabled
	}
	plan, in, err := s.prepare(subject, body, entityLabel)
	if err != nil {
		return Result{}, err
	}

	stmt, err := s.builder.Compile(in)
	if err != nil {
		return Result{}, fmt.Errorf("compile: %w", err)
	}
	s.log(ctx).Debug("Executing search",
		zap.String("entity", plan.Entity.Name()),
		zap.String("sql", stmt.SQL),
		zap.Int("params", len(stmt.Args)),
	)

	rows, err := s.exec.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Result{}, fmt.Errorf("execute search on %s: %w", plan.Entity.Name(), err)
	}

	res := Result{
		Entity:          plan.Entity.Name(),
		View:            plan.Entity.View(),
		Columns:         rows.Columns,
		Rows:            rows.Values,
		Total:           -1,
		Page:            plan.Page,
		MaxPageSize:     plan.MaxLimit,
		PageSizeApplied: plan.Page.Limit,
	}
	if res.Rows == nil {
		res.Rows = [][]any{}
	}
	if s.withCount {
		res.Total, err = s.count(ctx, plan, in, len(res.Rows))
		if err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// count skips the COUNT(*) round trip when a short page already gives the total.
func (s *Service) count(ctx context.Context, plan validate.Plan, in query.Input, got int) (int64, error) {
	if got < plan.Page.Limit && (got > 0 || plan.Page.Offset == 0) {
		return int64(plan.Page.Offset + got), nil
	}
	stmt, err := s.builder.CompileCount(in)
	if err != nil {
		return 0, fmt.Errorf("compile count: %w", err)
	}
	n, err := s.exec.QueryCount(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("execute count on %s: %w", plan.Entity.Name(), err)
	}
	return n, nil
}

// Compile returns the statements a search would run, without executing them.
func (s *Service) Compile(ctx context.Context, subject access.Subject, body []byte) (Preview, error) {
	start := time.Now()
	entityLabel := "unknown"
	p, err := s.compile(subject, body, &entityLabel)
	s.observe(ctx, "compile", entityLabel, start, err)
	return p, err
}

func (s *Service) compile(subject access.Subject, body []byte, entityLabel *string) (Preview, error) {
	plan, in, err := s.prepare(subject, body, entityLabel)
	if err != nil {
		return Preview{}, err
	}

	stmt, err := s.builder.Compile(in)
	if err != nil {
		return Preview{}, fmt.Errorf("compile: %w", err)
	}
	count, err := s.builder.CompileCount(in)
	if err != nil {
		return Preview{}, fmt.Errorf("compile count: %w", err)
	}
	return Preview{
		SQL:             stmt.SQL,
		Params:          stmt.Args,
		CountSQL:        count.SQL,
		CountParams:     count.Args,
		PageSizeApplied: plan.Page.Limit,
		MaxPageSize:     plan.MaxLimit,
		MappedView:      plan.Entity.View(),
	}, nil
}

// Check validates a decoded request for subject and returns the plan.
func (s *Service) Check(subject access.Subject, req request.Request) (validate.Plan, error) {
	e, err := s.reg.LookupEntity(req.Entity)
	if err != nil {
		return validate.Plan{}, fmt.Errorf("lookup entity: %w", err)
	}
	allowed, err := s.allowed(subject, e)
	if err != nil {
		return validate.Plan{}, err
	}
	plan, err := s.validator.Validate(req, allowed)
	if err != nil {
		return validate.Plan{}, fmt.Errorf("validate: %w", err)
	}
	return plan, nil
}

// AllowedColumns returns the columns of entity that subject may reference.
func (s *Service) AllowedColumns(subject access.Subject, entity string) (registry.Entity, []column.Column, error) {
	e, err := s.reg.LookupEntity(entity)
	if err != nil {
		return registry.Entity{}, nil, fmt.Errorf("lookup entity: %w", err)
	}
	allowed, err := s.allowed(subject, e)
	if err != nil {
		return registry.Entity{}, nil, err
	}
	var cols []column.Column
	for _, c := range e.Columns() {
		if allowed.Has(c.Name()) {
			cols = append(cols, c)
		}
	}
	return e, cols, nil
}

// Entities lists the entities where subject may reference at least one column.
func (s *Service) Entities(subject access.Subject) ([]registry.Entity, error) {
	var out []registry.Entity
	for _, e := range s.reg.Entities() {
		_, cols, err := s.AllowedColumns(subject, e.Name())
		if err != nil {
			return nil, err
		}
		if len(cols) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// prepare sets entityLabel once the entity is known, so rejected requests are still attributed.
func (s *Service) prepare(subject access.Subject, body []byte, entityLabel *string) (validate.Plan, query.Input, error) {
	req, err := request.Parse(body, s.limits)
	if err != nil {
		return validate.Plan{}, query.Input{}, err
	}
	if e, err := s.reg.LookupEntity(req.Entity); err == nil {
		*entityLabel = e.Name()
	}
	plan, err := s.Check(subject, req)
	if err != nil {
		return validate.Plan{}, query.Input{}, err
	}

	cols := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		cols[i] = c.Name()
	}
	return plan, query.Input{
		Entity:   plan.Entity.Name(),
		Filter:   plan.Filter,
		Sort:     plan.Sort,
		Page:     plan.Page,
		Columns:  cols,
		Distinct: plan.Distinct,
	}, nil
}

func (s *Service) allowed(subject access.Subject, e registry.Entity) (validate.Allowed, error) {
	if s.policy == nil {
		return validate.AllowEntity(e), nil
	}
	allowed, err := s.policy.AllowedColumns(subject, e)
	if err != nil {
		return validate.Allowed{}, fmt.Errorf("resolve allowed columns: %w", err)
	}
	return allowed, nil
}

func (s *Service) observe(ctx context.Context, op, entity string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case domain.IsUserError(err):
		outcome = domain.Code(err)
		fields := []zap.Field{zap.String("operation", op), zap.String("code", outcome), zap.Error(err)}
		if v, ok := domain.AsViolation(err); ok {
			fields = append(fields, zap.String("entity", v.Entity), zap.String("column", v.Column))
		}
		s.log(ctx).Warn("Search rejected", fields...)
	case errors.Is(err, ErrExecutionDisabled):
		outcome = "disabled"
	default:
		outcome = "error"
		s.log(ctx).Error("Search failed",
			zap.String("operation", op),
			zap.String("entity", entity),
			zap.Error(err),
		)
	}
	metrics.SearchRequestsTotal.WithLabelValues(op, entity, outcome).Inc()
	metrics.SearchDuration.WithLabelValues(op, entity).Observe(time.Since(start).Seconds())
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logpkg.FromContextOr(ctx, s.logger)
}
