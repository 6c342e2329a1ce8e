package viewdex

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures an Engine.
type Option interface {
	apply(*engineConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*engineConfig)

func (f optionFunc) apply(c *engineConfig) { f(c) }

type engineConfig struct {
	driver string // "postgres", "duckdb" or "" (compile only)
	dsn    string
	conn   *sql.DB

	viewsFile string
	discover  bool
	entities  []EntityDef

	policyFile   string
	policyRules  [][]string
	defaultRoles []string

	dialect         string
	useILike        bool
	skipCount       bool
	defaultPageSize int
	maxPageSize     int
	maxDepth        int
	maxNodes        int
	maxValues       int

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres executes searches on PostgreSQL through a pgx pool.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *engineConfig) {
		c.driver = "postgres"
		c.dsn = dsn
		c.conn = nil
	})
}

// WithDuckDB executes searches on a DuckDB database file. An empty dsn opens an in-memory database.
func WithDuckDB(dsn string) Option {
	return optionFunc(func(c *engineConfig) {
		c.driver = "duckdb"
		c.dsn = dsn
		c.conn = nil
	})
}

// WithDuckDBConn executes searches on an already opened DuckDB handle.
// The Engine takes ownership and closes conn on Close.
func WithDuckDBConn(conn *sql.DB) Option {
	return optionFunc(func(c *engineConfig) {
		c.driver = "duckdb"
		c.dsn = ""
		c.conn = conn
	})
}

// WithViewsFile loads entities from a YAML views file.
// With discover set, columns missing from the file are read from information_schema.
func WithViewsFile(path string, discover bool) Option {
	return optionFunc(func(c *engineConfig) {
		c.viewsFile = path
		c.discover = discover
	})
}

// WithEntity registers an entity in code, alongside any views file.
func WithEntity(def EntityDef) Option {
	return optionFunc(func(c *engineConfig) {
		c.entities = append(c.entities, def)
	})
}

// WithPolicyFile enforces a column access policy CSV. defaultRoles apply to every subject.
func WithPolicyFile(path string, defaultRoles ...string) Option {
	return optionFunc(func(c *engineConfig) {
		c.policyFile = path
		c.defaultRoles = defaultRoles
	})
}

// WithPolicyRule adds an in-memory policy rule: subject, entity, column, effect ("allow" or "deny").
// Entity and column accept "*".
func WithPolicyRule(subject, entity, column, effect string) Option {
	return optionFunc(func(c *engineConfig) {
		c.policyRules = append(c.policyRules, []string{subject, entity, column, "read", effect})
	})
}

// WithDialect overrides the SQL dialect implied by the driver: postgres, duckdb, snowflake or generic.
func WithDialect(name string) Option {
	return optionFunc(func(c *engineConfig) {
		c.dialect = name
	})
}

// WithILike compiles pattern operators to case-insensitive ILIKE where the dialect supports it.
func WithILike() Option {
	return optionFunc(func(c *engineConfig) {
		c.useILike = true
	})
}

// WithoutCount skips the COUNT(*) query; Result.Total is then -1.
func WithoutCount() Option {
	return optionFunc(func(c *engineConfig) {
		c.skipCount = true
	})
}

// WithPageBounds sets the default page size and the global page cap.
// Defaults: 100 and 1000.
func WithPageBounds(defaultSize, maxSize int) Option {
	return optionFunc(func(c *engineConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithFilterLimits bounds filter trees. Defaults: depth 20, 500 nodes.
func WithFilterLimits(maxDepth, maxNodes int) Option {
	return optionFunc(func(c *engineConfig) {
		c.maxDepth = maxDepth
		c.maxNodes = maxNodes
	})
}

// WithValueLimit caps the comparison values a filter may carry in total.
// Each value is one bind parameter. Default: 10000.
func WithValueLimit(n int) Option {
	return optionFunc(func(c *engineConfig) {
		c.maxValues = n
	})
}

// WithLogger enables structured logging for engine operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *engineConfig) {
		c.logger = l
	})
}

// WithPrometheus registers engine metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *engineConfig) {
		c.metricsReg = reg
	})
}
