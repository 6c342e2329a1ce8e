package viewdex

import (
	"context"
	"encoding/json"
	"fmt"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Subject identifies the caller for column access control.
type Subject struct {
	ID    string
	Roles []string
}

// Query is a fluent builder for one search over an entity.
type Query struct {
	eng *Engine

	entity   string
	subject  Subject
	filters  []Filter
	sort     []sortKey
	offset   *int
	limit    *int
	columns  []string
	distinct bool
}

type sortKey struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

type pageJSON struct {
	Offset *int `json:"offset,omitempty"`
	Limit  *int `json:"limit,omitempty"`
}

type requestJSON struct {
	Entity   string    `json:"entity"`
	Filter   Filter    `json:"filter"`
	Sort     []sortKey `json:"sort,omitempty"`
	Page     *pageJSON `json:"page,omitempty"`
	Columns  []string  `json:"columns,omitempty"`
	Distinct bool      `json:"distinct,omitempty"`
}

// As evaluates the access policy for subject instead of the anonymous caller.
func (q *Query) As(s Subject) *Query {
	q.subject = s
	return q
}

// Where adds a filter. Several calls are combined with AND.
func (q *Query) Where(f Filter) *Query {
	q.filters = append(q.filters, f)
	return q
}

// OrderBy appends a sort key. Without sort keys the entity default sort applies.
func (q *Query) OrderBy(col string, dir Direction) *Query {
	q.sort = append(q.sort, sortKey{Column: col, Direction: dir})
	return q
}

// Offset skips the first n matching rows.
func (q *Query) Offset(n int) *Query {
	q.offset = &n
	return q
}

// Limit sets the page size. It is clamped to the entity page cap.
func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

// Select restricts the returned columns. Without it every selectable column is returned.
func (q *Query) Select(cols ...string) *Query {
	q.columns = append(q.columns, cols...)
	return q
}

// Distinct removes duplicate rows.
func (q *Query) Distinct() *Query {
	q.distinct = true
	return q
}

// Do runs the query and returns one page of rows.
func (q *Query) Do(ctx context.Context) (Result, error) {
	body, err := q.body()
	if err != nil {
		return Result{}, err
	}
	return q.eng.Search(ctx, q.subject, body)
}

// SQL compiles the query without executing it.
func (q *Query) SQL(ctx context.Context) (Statement, error) {
	body, err := q.body()
	if err != nil {
		return Statement{}, err
	}
	return q.eng.Compile(ctx, q.subject, body)
}

// JSON returns the wire form of the query, as accepted by the HTTP API.
func (q *Query) JSON() ([]byte, error) { return q.body() }

func (q *Query) body() ([]byte, error) {
	req := requestJSON{
		Entity:   q.entity,
		Sort:     q.sort,
		Columns:  q.columns,
		Distinct: q.distinct,
	}
	switch len(q.filters) {
	case 0:
		req.Filter = MatchAll()
	case 1:
		req.Filter = q.filters[0]
	default:
		req.Filter = And(q.filters...)
	}
	if q.offset != nil || q.limit != nil {
		req.Page = &pageJSON{Offset: q.offset, Limit: q.limit}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("viewdex: encode query: %w", err)
	}
	return b, nil
}
