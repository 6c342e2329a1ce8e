package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// IdentCase is how a dialect stores identifiers written without quotes.
type IdentCase int

// Identifier folding rules.
const (
	CasePreserve IdentCase = iota
	CaseLower
	CaseUpper
)

// Dialect captures the SQL differences the builder cares about.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	// ILike reports whether the dialect has a case-insensitive ILIKE.
	ILike bool
	// Fold is applied to registry names before quoting, so a quoted name
	// resolves to the same object as the unquoted one.
	Fold IdentCase
}

// Supported dialects.
var (
	Postgres  = Dialect{Name: "postgres", Placeholder: sq.Dollar, ILike: true, Fold: CaseLower}
	DuckDB    = Dialect{Name: "duckdb", Placeholder: sq.Question, ILike: true}
	Snowflake = Dialect{Name: "snowflake", Placeholder: sq.Question, ILike: true, Fold: CaseUpper}
	Generic   = Dialect{Name: "generic", Placeholder: sq.Question}
)

// Ident folds and quotes a column name.
func (d Dialect) Ident(name string) string {
	switch d.Fold {
	case CaseLower:
		name = strings.ToLower(name)
	case CaseUpper:
		name = strings.ToUpper(name)
	}
	return QuoteIdent(name)
}

// View folds and quotes every part of a dotted view name.
func (d Dialect) View(view string) string {
	parts := strings.Split(view, ".")
	for i, p := range parts {
		parts[i] = d.Ident(p)
	}
	return strings.Join(parts, ".")
}

// ParseDialect resolves a dialect by name, case-insensitively.
func ParseDialect(name string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, true
	case "duckdb":
		return DuckDB, true
	case "snowflake":
		return Snowflake, true
	case "generic", "ansi":
		return Generic, true
	}
	return Dialect{}, false
}
