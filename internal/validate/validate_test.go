package validate

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/viewdex/internal/domain"
	"github.com/kailas-cloud/viewdex/internal/domain/registry"
	"github.com/kailas-cloud/viewdex/internal/domain/registry/column"
	"github.com/kailas-cloud/viewdex/internal/domain/search/filter"
	"github.com/kailas-cloud/viewdex/internal/domain/search/order"
	"github.com/kailas-cloud/viewdex/internal/domain/search/page"
	"github.com/kailas-cloud/viewdex/internal/domain/search/request"
)

func countyRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	cols := []column.Column{
		column.Reconstruct("state", column.String, column.AllFlags),
		column.Reconstruct("population", column.Integer, column.AllFlags),
		column.Reconstruct("area", column.Decimal, column.AllFlags),
		column.Reconstruct("founded", column.Date, column.AllFlags),
		column.Reconstruct("is_coastal", column.Boolean, column.AllFlags),
		column.Reconstruct("secret_score", column.Decimal, column.AllFlags),
		column.Reconstruct("notes", column.String, column.Flags{Selectable: true}),
		column.Reconstruct("internal_id", column.Integer, column.Flags{Filterable: true}),
	}
	e, err := registry.NewEntity("County", "analytics.public.v_county", cols, registry.WithMaxPageSize(500))
	if err != nil {
		t.Fatalf("NewEntity: %v", err)
	}
	return registry.MustNew(e)
}

// analyst may see everything except secret_score.
var analyst = AllowColumns("state", "population", "area", "founded", "is_coastal", "notes", "internal_id")

func county(t *testing.T) registry.Entity {
	t.Helper()
	e, err := countyRegistry(t).LookupEntity("County")
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func cmp(col string, op filter.Operator, v filter.Value) filter.Node {
	return filter.NewComparison(col, op, v)
}

func TestValidate_CountyScenario(t *testing.T) {
	v := New(countyRegistry(t), PageBounds{})
	req := request.Request{
		Entity: "County",
		Filter: filter.NewAnd(
			cmp("state", filter.Eq, filter.Scalar("CA")),
			cmp("population", filter.Gte, filter.Scalar(1000000)),
		),
		Sort: order.Spec{{Column: "population", Direction: order.Desc}},
		Page: page.Request{Offset: 0, Limit: 10, HasLimit: true},
	}

	plan, err := v.Validate(req, analyst)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if plan.Entity.Name() != "County" {
		t.Errorf("entity = %q", plan.Entity.Name())
	}
	if plan.Page != (page.Window{Offset: 0, Limit: 10}) {
		t.Errorf("page = %+v", plan.Page)
	}
	if plan.MaxLimit != 500 {
		t.Errorf("MaxLimit = %d, want 500", plan.MaxLimit)
	}
	for _, c := range plan.Columns {
		if c.Name() == "secret_score" {
			t.Error("projection leaked a column outside the allow-list")
		}
	}
	if len(plan.Columns) != 7 {
		t.Errorf("projection has %d columns, want 7", len(plan.Columns))
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  request.Request
		want error
	}{
		{
			name: "unknown entity",
			req:  request.Request{Entity: "Parcel"},
			want: domain.ErrEntityNotFound,
		},
		{
			name: "column outside allow-list",
			req: request.Request{Entity: "County",
				Filter: cmp("secret_score", filter.Gt, filter.Scalar(0.5))},
			want: domain.ErrColumnNotAllowed,
		},
		{
			name: "unknown column outside allow-list",
			req: request.Request{Entity: "County",
				Filter: cmp("nope", filter.Eq, filter.Scalar("x"))},
			want: domain.ErrColumnNotAllowed,
		},
		{
			name: "between with mistyped bound",
			req: request.Request{Entity: "County",
				Filter: cmp("population", filter.Between, filter.Pair(1000, "oops"))},
			want: domain.ErrOperatorTypeMismatch,
		},
		{
			name: "duplicate sort key",
			req: request.Request{Entity: "County",
				Sort: order.Spec{{Column: "state", Direction: order.Asc}, {Column: "STATE", Direction: order.Desc}}},
			want: domain.ErrSortNotAllowed,
		},
		{
			name: "negative offset",
			req:  request.Request{Entity: "County", Page: page.Request{Offset: -1}},
			want: domain.ErrInvalidPagination,
		},
		{
			name: "projection outside allow-list",
			req:  request.Request{Entity: "County", Columns: []string{"state", "secret_score"}},
			want: domain.ErrColumnNotAllowed,
		},
	}
	v := New(countyRegistry(t), PageBounds{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.req, analyst)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidate_NilFilterMatchesAll(t *testing.T) {
	v := New(countyRegistry(t), PageBounds{})
	plan, err := v.Validate(request.Request{Entity: "county"}, analyst)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	g, ok := plan.Filter.(filter.Group)
	if !ok || g.Op != filter.And || len(g.Children) != 0 {
		t.Errorf("filter = %#v, want empty AND", plan.Filter)
	}
	if plan.Page != (page.Window{Offset: 0, Limit: 100}) {
		t.Errorf("page = %+v, want default window", plan.Page)
	}
}

func TestFilter_CheckOrder(t *testing.T) {
	e := county(t)
	tests := []struct {
		name    string
		node    filter.Node
		allowed Allowed
		want    error
	}{
		{"allowed but unknown", cmp("ghost", filter.Eq, filter.Scalar("x")), AllowColumns("ghost"), domain.ErrColumnNotFound},
		{"known but not filterable", cmp("notes", filter.Eq, filter.Scalar("x")), analyst, domain.ErrColumnNotAllowed},
		{"nested in not", filter.NewNot(cmp("secret_score", filter.IsNull, filter.NoValue())), analyst, domain.ErrColumnNotAllowed},
		{"deep in or", filter.NewOr(filter.MatchAll(), filter.NewAnd(cmp("ghost", filter.IsNull, filter.NoValue()))), AllowAll(), domain.ErrColumnNotFound},
		{"zero allow-list", cmp("state", filter.Eq, filter.Scalar("CA")), Allowed{}, domain.ErrColumnNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Filter(e, tt.node, tt.allowed); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFilter_OperatorTypes(t *testing.T) {
	e := county(t)
	tests := []struct {
		name string
		node filter.Node
		ok   bool
	}{
		{"eq string", cmp("state", filter.Eq, filter.Scalar("CA")), true},
		{"eq number on string", cmp("state", filter.Eq, filter.Scalar(5)), false},
		{"contains on string", cmp("state", filter.Contains, filter.Scalar("A")), true},
		{"like on integer", cmp("population", filter.Like, filter.Scalar("1%")), false},
		{"startsWith on date", cmp("founded", filter.StartsWith, filter.Scalar("18")), false},
		{"gt on integer", cmp("population", filter.Gt, filter.Scalar(10)), true},
		{"gt on date", cmp("founded", filter.Gt, filter.Scalar("1850-01-01")), true},
		{"gt on bad date", cmp("founded", filter.Gt, filter.Scalar("01/01/1850")), false},
		{"gt on boolean", cmp("is_coastal", filter.Gt, filter.Scalar(true)), false},
		{"gt on string", cmp("state", filter.Gt, filter.Scalar("C")), false},
		{"eq on boolean", cmp("is_coastal", filter.Eq, filter.Scalar(true)), true},
		{"eq boolean as string", cmp("is_coastal", filter.Eq, filter.Scalar("true")), false},
		{"numeric string rejected", cmp("population", filter.Eq, filter.Scalar("1000")), false},
		{"in homogeneous", cmp("population", filter.In, filter.List(1, 2, 3)), true},
		{"in mixed", cmp("population", filter.In, filter.List(1, "2")), false},
		{"in empty", cmp("state", filter.In, filter.List()), true},
		{"notIn empty", cmp("state", filter.NotIn, filter.List()), true},
		{"between decimal", cmp("area", filter.Between, filter.Pair(1.5, 10)), true},
		{"decimal as string rejected", cmp("area", filter.Eq, filter.Scalar("1.5")), false},
		{"between on boolean", cmp("is_coastal", filter.Between, filter.Pair(false, true)), false},
		{"isNull on anything", cmp("is_coastal", filter.IsNull, filter.NoValue()), true},
		{"isNotNull with value", cmp("state", filter.IsNotNull, filter.Scalar("x")), false},
		{"between one bound", cmp("population", filter.Between, filter.List(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Filter(e, tt.node, AllowAll())
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFilter_MismatchNamesElement(t *testing.T) {
	err := Filter(county(t), cmp("population", filter.Between, filter.Pair(1000, "oops")), AllowAll())
	v, ok := domain.AsViolation(err)
	if !ok {
		t.Fatalf("expected ViolationError, got %v", err)
	}
	if v.Column != "population" || v.Operator != "between" {
		t.Errorf("violation = %+v", v)
	}
	if v.Reason == "" || v.Reason[:8] != "value[1]" {
		t.Errorf("reason = %q, want it to name value[1]", v.Reason)
	}
}

func TestSort(t *testing.T) {
	e := county(t)

	got, err := Sort(e, order.Spec{{Column: "POPULATION", Direction: order.Desc}, {Column: "state"}}, analyst)
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	want := order.Spec{{Column: "population", Direction: order.Desc}, {Column: "state", Direction: order.Asc}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Sort() = %v, want %v", got, want)
	}

	bad := []order.Spec{
		{{Column: "ghost"}},
		{{Column: "internal_id"}},
		{{Column: "secret_score"}},
		{{Column: "state"}, {Column: "population"}, {Column: "State"}},
	}
	for _, spec := range bad {
		if _, err := Sort(e, spec, analyst); !errors.Is(err, domain.ErrSortNotAllowed) {
			t.Errorf("Sort(%v) error = %v, want ErrSortNotAllowed", spec, err)
		}
	}

	if got, err := Sort(e, nil, analyst); err != nil || got != nil {
		t.Errorf("Sort(nil) = %v, %v", got, err)
	}
}

func TestSort_DuplicateAfterNormalization(t *testing.T) {
	v := New(countyRegistry(t), PageBounds{})
	body := `{"entity":"County","sort":[{"column":"state","direction":"ASC"},{"column":"state ","direction":"DESC"}]}`
	req, err := request.Parse([]byte(body), filter.Limits{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := v.Validate(req, analyst); !errors.Is(err, domain.ErrSortNotAllowed) {
		t.Errorf("Validate error = %v, want ErrSortNotAllowed", err)
	}

	// Whitespace and case both fold into the resolved column key.
	spec := order.Spec{{Column: "state"}, {Column: "\tState"}}
	if _, err := Sort(county(t), spec, analyst); !errors.Is(err, domain.ErrSortNotAllowed) {
		t.Errorf("Sort(%v) error = %v, want ErrSortNotAllowed", spec, err)
	}
}

func TestPage(t *testing.T) {
	e := county(t) // max page size 500
	tests := []struct {
		name    string
		req     page.Request
		bounds  PageBounds
		want    page.Window
		wantErr bool
	}{
		{"default", page.Request{}, PageBounds{}, page.Window{Offset: 0, Limit: 100}, false},
		{"explicit", page.Request{Offset: 20, Limit: 10, HasLimit: true}, PageBounds{}, page.Window{Offset: 20, Limit: 10}, false},
		{"clamped to entity cap", page.Request{Limit: 5000, HasLimit: true}, PageBounds{}, page.Window{Limit: 500}, false},
		{"clamped to global cap", page.Request{Limit: 5000, HasLimit: true}, PageBounds{GlobalMaxLimit: 200}, page.Window{Limit: 200}, false},
		{"default bounded by cap", page.Request{}, PageBounds{DefaultLimit: 800}, page.Window{Limit: 500}, false},
		{"zero limit", page.Request{Limit: 0, HasLimit: true}, PageBounds{}, page.Window{}, true},
		{"negative limit", page.Request{Limit: -3, HasLimit: true}, PageBounds{}, page.Window{}, true},
		{"negative offset", page.Request{Offset: -1}, PageBounds{}, page.Window{}, true},
		{"legacy index", page.Legacy(25, 3), PageBounds{}, page.Window{Offset: 75, Limit: 25}, false},
		{"legacy default size", page.Legacy(0, 2), PageBounds{}, page.Window{Offset: 200, Limit: 100}, false},
		{"legacy clamped size", page.Legacy(900, 1), PageBounds{}, page.Window{Offset: 500, Limit: 500}, false},
		{"legacy negative size", page.Legacy(-5, 0), PageBounds{}, page.Window{}, true},
		{"legacy negative index", page.Legacy(10, -1), PageBounds{}, page.Window{}, true},
		{"legacy huge index", page.Legacy(500, 1<<40), PageBounds{}, page.Window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Page(e, tt.req, tt.bounds)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidPagination) {
					t.Errorf("error = %v, want ErrInvalidPagination", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Page() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProjection(t *testing.T) {
	e := county(t)

	cols, err := Projection(e, []string{"POPULATION", "state", "population"}, analyst)
	if err != nil {
		t.Fatalf("Projection: %v", err)
	}
	if len(cols) != 2 || cols[0].Name() != "population" || cols[1].Name() != "state" {
		t.Errorf("Projection() = %v", names(cols))
	}

	if _, err := Projection(e, []string{"internal_id"}, analyst); !errors.Is(err, domain.ErrColumnNotAllowed) {
		t.Errorf("non-selectable: error = %v", err)
	}
	if _, err := Projection(e, []string{"ghost"}, AllowAll()); !errors.Is(err, domain.ErrColumnNotFound) {
		t.Errorf("unknown: error = %v", err)
	}
	if _, err := Projection(e, nil, AllowColumns("internal_id")); !errors.Is(err, domain.ErrColumnNotAllowed) {
		t.Errorf("nothing visible: error = %v", err)
	}
}

func TestAllowed(t *testing.T) {
	a := AllowColumns("State", "population")
	if !a.Has("STATE") || !a.Has("population") || a.Has("area") {
		t.Errorf("Has() mismatch for %v", a.Names())
	}
	if got := a.Names(); len(got) != 2 || got[0] != "population" || got[1] != "state" {
		t.Errorf("Names() = %v", got)
	}
	if (Allowed{}).Has("state") {
		t.Error("zero Allowed must allow nothing")
	}
	if !AllowAll().Has("anything") || AllowAll().Names() != nil {
		t.Error("AllowAll mismatch")
	}
	if !AllowEntity(county(t)).Has("secret_score") {
		t.Error("AllowEntity must include every column")
	}
}

func names(cols []column.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name()
	}
	return out
}
