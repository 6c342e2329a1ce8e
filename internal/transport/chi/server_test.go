package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/access"
	"github.com/kailas-cloud/viewdex/internal/db"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/query"
	draftuc "github.com/kailas-cloud/viewdex/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/viewdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
	"github.com/kailas-cloud/viewdex/internal/validate"
)

// --- Mocks ---

type mockExec struct {
	rows    *db.Rows
	err     error
	queried bool
}

func (m *mockExec) Query(_ context.Context, _ string, _ ...any) (*db.Rows, error) {
	m.queried = true
	return m.rows, m.err
}

func (m *mockExec) QueryCount(_ context.Context, _ string, _ ...any) (int64, error) {
	return 0, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockCompleter struct {
	answer string
	err    error
}

func (m *mockCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return m.answer, m.err
}

// --- Fixtures ---

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	county, err := registry.NewEntity("County", "analytics.public.v_county", []column.Column{
		column.Reconstruct("state", column.String, column.AllFlags),
		column.Reconstruct("population", column.Integer, column.AllFlags),
		column.Reconstruct("secret_score", column.Decimal, column.AllFlags),
	}, registry.WithMaxPageSize(500), registry.WithDefaultSort("state"))
	if err != nil {
		t.Fatal(err)
	}
	parcel, err := registry.NewEntity("Parcel", "v_parcel", []column.Column{
		column.Reconstruct("apn", column.String, column.AllFlags),
	})
	if err != nil {
		t.Fatal(err)
	}
	return registry.MustNew(county, parcel)
}

func testPolicy(t *testing.T) *access.Policy {
	t.Helper()
	p, err := access.FromRules([][]string{
		{"analyst", "County", "*", access.ActionRead, "allow"},
		{"analyst", "County", "secret_score", access.ActionRead, "deny"},
	}, nil, "analyst")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

type fixture struct {
	exec    *mockExec
	search  *searchuc.Service
	handler http.Handler
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	reg := testRegistry(t)
	exec := &mockExec{rows: &db.Rows{
		Columns: []string{"state", "population"},
		Values:  [][]any{{"CA", int64(39000000)}, {"CA", int64(10000000)}},
	}}
	svc := searchuc.New(
		reg,
		validate.New(reg, validate.PageBounds{}),
		query.New(reg, query.Options{Dialect: query.Postgres}),
		exec, testPolicy(t), zap.NewNop(),
	)
	deps := Deps{
		Search: svc,
		Draft:  draftuc.New(nil, svc, filter.Limits{}, zap.NewNop()),
		Health: healthuc.New(&mockPinger{}, nil, []string{"County", "Parcel"}),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &fixture{exec: exec, search: svc, handler: NewServer(deps, zap.NewNop()).Handler()}
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

const countyBody = `{
	"entity": "County",
	"filter": {"logicalOperator": "And", "expressions": [
		{"column": "state", "operator": "eq", "value": "CA"},
		{"column": "population", "operator": "gte", "value": 1000000}
	]},
	"sort": [{"column": "population", "direction": "DESC"}],
	"page": {"offset": 0, "limit": 10}
}`

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do("POST", "/search", countyBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entity != "County" || resp.MappedView != "analytics.public.v_county" {
		t.Errorf("unexpected entity/view: %q %q", resp.Entity, resp.MappedView)
	}
	if len(resp.Rows) != 2 || len(resp.Columns) != 2 {
		t.Errorf("unexpected rows %v columns %v", resp.Rows, resp.Columns)
	}
	if resp.Total == nil || *resp.Total != 2 {
		t.Errorf("expected total 2, got %v", resp.Total)
	}
	if resp.Page.Limit != 10 || resp.MaxPageSize != 500 {
		t.Errorf("unexpected page %+v max %d", resp.Page, resp.MaxPageSize)
	}
	if strings.Contains(rr.Body.String(), "SELECT") {
		t.Error("search response must not contain SQL")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSearch_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantColumn string
		wantOp     string
	}{
		{
			name:       "malformed json",
			body:       `{"entity":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "malformed_filter",
		},
		{
			name:       "unknown entity",
			body:       `{"entity":"Nope"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "entity_not_found",
		},
		{
			name:       "denied column",
			body:       `{"entity":"County","filter":{"column":"secret_score","operator":"gt","value":1}}`,
			wantStatus: http.StatusForbidden,
			wantCode:   "column_not_allowed",
			wantColumn: "secret_score",
		},
		{
			name:       "operator mismatch",
			body:       `{"entity":"County","filter":{"column":"population","operator":"contains","value":"x"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "operator_type_mismatch",
			wantColumn: "population",
			wantOp:     "contains",
		},
		{
			name:       "unknown sort column",
			body:       `{"entity":"County","sort":[{"column":"nope","direction":"ASC"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "sort_not_allowed",
			wantColumn: "nope",
		},
		{
			name:       "negative offset",
			body:       `{"entity":"County","page":{"offset":-1,"limit":10}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_pagination",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rr := f.do("POST", "/search", tt.body)

			if rr.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			errResp := decodeError(t, rr)
			if errResp.Code != tt.wantCode {
				t.Errorf("code: got %s, want %s", errResp.Code, tt.wantCode)
			}
			if errResp.Column != tt.wantColumn {
				t.Errorf("column: got %q, want %q", errResp.Column, tt.wantColumn)
			}
			if errResp.Operator != tt.wantOp {
				t.Errorf("operator: got %q, want %q", errResp.Operator, tt.wantOp)
			}
			if f.exec.queried {
				t.Error("rejected request must not reach the executor")
			}
		})
	}
}

func TestSearch_ExecutionError_HidesDetails(t *testing.T) {
	f := newFixture(t, nil)
	f.exec.err = errors.New(`pq: relation "analytics.public.v_county" does not exist`)

	rr := f.do("POST", "/search", countyBody)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	errResp := decodeError(t, rr)
	if errResp.Code != "internal_error" || errResp.Message != "internal error" {
		t.Errorf("unexpected error response %+v", errResp)
	}
}

func TestSearch_ExecutionDisabled(t *testing.T) {
	reg := testRegistry(t)
	svc := searchuc.New(reg, validate.New(reg, validate.PageBounds{}),
		query.New(reg, query.Options{}), nil, nil, zap.NewNop())
	f := newFixture(t, func(d *Deps) { d.Search = svc })

	rr := f.do("POST", "/search", `{"entity":"County"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("got %d, want 501", rr.Code)
	}
	if errResp := decodeError(t, rr); errResp.Code != "execution_disabled" {
		t.Errorf("code: got %s", errResp.Code)
	}
}

func TestCompileSQL(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do("POST", "/sql", countyBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp SQLResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantSQL := `SELECT "state", "population" FROM "analytics"."public"."v_county" ` +
		`WHERE (("state" = $1) AND ("population" >= $2)) ORDER BY "population" DESC LIMIT 10 OFFSET 0`
	if resp.SQL != wantSQL {
		t.Errorf("sql:\ngot:  %s\nwant: %s", resp.SQL, wantSQL)
	}
	if len(resp.Params) != 2 || resp.Params[0] != "CA" {
		t.Errorf("unexpected params %v", resp.Params)
	}
	if !strings.HasPrefix(resp.CountSQL, "SELECT COUNT(*)") {
		t.Errorf("unexpected count sql %q", resp.CountSQL)
	}
	if resp.MappedView != "analytics.public.v_county" || resp.PageSizeApplied != 10 {
		t.Errorf("unexpected preview %+v", resp)
	}
	if f.exec.queried {
		t.Error("compile must not execute")
	}
}

func TestListEntities(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do("GET", "/entities", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp EntityListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Parcel has no grants, so only County is visible.
	if len(resp.Entities) != 1 || resp.Entities[0].Entity != "County" {
		t.Fatalf("unexpected entities %+v", resp.Entities)
	}
	county := resp.Entities[0]
	if county.MaxPageSize != 500 || county.DefaultSort != "state" {
		t.Errorf("unexpected entity %+v", county)
	}
	if len(county.Columns) != 2 {
		t.Errorf("expected the 2 allowed columns, got %+v", county.Columns)
	}
	for _, c := range county.Columns {
		if c.Name == "secret_score" {
			t.Error("denied column must not be listed")
		}
	}
}

func TestListEntities_Params(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do("GET", "/entities?include_columns=false", "")
	var resp EntityListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entities) != 1 || resp.Entities[0].Columns != nil {
		t.Errorf("expected entities without columns, got %+v", resp.Entities)
	}

	for _, q := range []string{"include_columns=maybe", "limit=abc", "limit=0"} {
		rr := f.do("GET", "/entities?"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestGetEntity(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do("GET", "/entities/county", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp EntityResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Entity != "County" {
		t.Errorf("expected canonical name County, got %q", resp.Entity)
	}

	for _, name := range []string{"Parcel", "Nope"} {
		rr := f.do("GET", "/entities/"+name, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", name, rr.Code)
		}
	}
}

func TestDraft(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, nil)
		rr := f.do("POST", "/search/draft", `{"entity":"County","prompt":"big counties"}`)
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("got %d, want 501", rr.Code)
		}
		if errResp := decodeError(t, rr); errResp.Code != "draft_unavailable" {
			t.Errorf("code: got %s", errResp.Code)
		}
	})

	t.Run("validated draft", func(t *testing.T) {
		llm := &mockCompleter{answer: `{"column":"population","operator":"gte","value":1000000}`}
		f := newFixture(t, func(d *Deps) {
			d.Draft = draftuc.New(llm, d.Search, filter.Limits{}, zap.NewNop())
		})
		rr := f.do("POST", "/search/draft", `{"entity":"County","prompt":"counties over a million"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			Entity string          `json:"entity"`
			Filter json.RawMessage `json:"filter"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Entity != "County" || !strings.Contains(string(resp.Filter), `"population"`) {
			t.Errorf("unexpected draft %s %s", resp.Entity, resp.Filter)
		}
		if f.exec.queried {
			t.Error("drafts must never execute")
		}
	})

	t.Run("missing entity", func(t *testing.T) {
		f := newFixture(t, func(d *Deps) {
			d.Draft = draftuc.New(&mockCompleter{}, d.Search, filter.Limits{}, zap.NewNop())
		})
		rr := f.do("POST", "/search/draft", `{"prompt":"x"}`)
		if rr.Code != http.StatusNotFound {
			t.Errorf("got %d, want 404", rr.Code)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		db         healthuc.Pinger
		wantStatus int
		wantBody   string
	}{
		{"healthy", &mockPinger{}, http.StatusOK, "ok"},
		{"database down", &mockPinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(d *Deps) { d.Health = healthuc.New(tt.db, nil, nil) })
			rr := f.do("GET", "/health", "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("got %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status: got %q, want %q", resp.Status, tt.wantBody)
			}
		})
	}
}

func TestRouting_JSONErrors(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do("GET", "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rr.Code)
	}
	if errResp := decodeError(t, rr); errResp.Code != "not_found" {
		t.Errorf("code: got %s", errResp.Code)
	}

	rr = f.do("GET", "/search", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", rr.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	handler := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	if errResp := decodeError(t, rr); errResp.Code != "internal_error" {
		t.Errorf("code: got %s", errResp.Code)
	}
}
