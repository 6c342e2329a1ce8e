package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

func mustParse(t *testing.T, doc string) Node {
	t.Helper()
	n, err := Parse([]byte(doc), Limits{})
	if err != nil {
		t.Fatalf("Parse(%s) unexpected error: %v", doc, err)
	}
	return n
}

func TestParse_CountyScenario(t *testing.T) {
	n := mustParse(t, `{
		"logicalOperator": "And",
		"expressions": [
			{"column": "state", "operator": "eq", "value": "CA"},
			{"column": "population", "operator": "gte", "value": 1000000}
		]
	}`)

	want := NewAnd(
		NewComparison("state", Eq, Scalar("CA")),
		NewComparison("population", Gte, Scalar(json.Number("1000000"))),
	)
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %#v\nwant %#v", n, want)
	}
}

func TestParse_OperatorCanonicalization(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"EQ", Eq}, {"Eq", Eq}, {"ne", Neq}, {"NEQ", Neq},
		{"GTE", Gte}, {"lt", Lt}, {"LTE", Lte}, {"gt", Gt},
		{"LIKE", Like}, {"LK", Contains}, {"sw", StartsWith}, {"EW", EndsWith},
		{"contains", Contains}, {"startsWith", StartsWith}, {"ENDSWITH", EndsWith},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := mustParse(t, fmt.Sprintf(`{"column":"c","operator":%q,"value":"x"}`, tt.in))
			c, ok := n.(Comparison)
			if !ok {
				t.Fatalf("got %T, want Comparison", n)
			}
			if c.Operator != tt.want {
				t.Errorf("operator = %q, want %q", c.Operator, tt.want)
			}
		})
	}
}

func TestParse_ListAndNullaryOperators(t *testing.T) {
	n := mustParse(t, `{"expressions":[
		{"column":"state","operator":"IN","value":["CA","NV"]},
		{"column":"state","operator":"nin","value":[]},
		{"column":"deleted_at","operator":"isNull"},
		{"column":"deleted_at","operator":"IsNotNull","value":null},
		{"column":"population","operator":"between","value":[1000,5000]}
	]}`)

	g := n.(Group)
	if g.Op != And {
		t.Errorf("default logic = %q, want AND", g.Op)
	}
	want := []Comparison{
		NewComparison("state", In, List("CA", "NV")),
		NewComparison("state", NotIn, List()),
		NewComparison("deleted_at", IsNull, NoValue()),
		NewComparison("deleted_at", IsNotNull, NoValue()),
		NewComparison("population", Between, Pair(json.Number("1000"), json.Number("5000"))),
	}
	if len(g.Children) != len(want) {
		t.Fatalf("children = %d, want %d", len(g.Children), len(want))
	}
	for i, w := range want {
		if !reflect.DeepEqual(g.Children[i], w) {
			t.Errorf("child %d = %#v, want %#v", i, g.Children[i], w)
		}
	}
}

func TestParse_NotAndNesting(t *testing.T) {
	n := mustParse(t, `{"logicalOperator":"or","expressions":[
		{"not":{"column":"state","operator":"eq","value":"CA"}},
		{"logicalOperator":"AND","expressions":[]}
	]}`)

	want := NewOr(
		NewNot(NewComparison("state", Eq, Scalar("CA"))),
		MatchAll(),
	)
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %#v\nwant %#v", n, want)
	}
}

func TestParse_LegacyShapes(t *testing.T) {
	n := mustParse(t, `{
		"logicalOperator": "Or",
		"expressions": [{"propertyName": "state", "operator": "EQ", "value": "CA"}],
		"collections": [{"logicalOperator": "And", "expressions": [
			{"propertyName": "population", "operator": "GT", "value": 10}
		]}]
	}`)

	want := NewOr(
		NewComparison("state", Eq, Scalar("CA")),
		NewAnd(NewComparison("population", Gt, Scalar(json.Number("10")))),
	)
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %#v\nwant %#v", n, want)
	}
}

func TestParse_SingleChildGroupKept(t *testing.T) {
	n := mustParse(t, `{"expressions":[{"column":"a","operator":"eq","value":1}]}`)
	g, ok := n.(Group)
	if !ok {
		t.Fatalf("single-child group collapsed into %T", n)
	}
	if len(g.Children) != 1 {
		t.Errorf("children = %d, want 1", len(g.Children))
	}
}

func TestParse_UnknownColumnIsNotAParseError(t *testing.T) {
	mustParse(t, `{"column":"does_not_exist","operator":"eq","value":"x"}`)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"empty input", ``, "expected an object"},
		{"array root", `[]`, "expected an object"},
		{"null root", `null`, "expected an object"},
		{"empty object", `{}`, "not a group"},
		{"unknown operator", `{"column":"a","operator":"approx","value":1}`, "unrecognized operator"},
		{"operator not string", `{"column":"a","operator":1,"value":1}`, "operator must be a string"},
		{"missing operator", `{"column":"a","value":1}`, "operator must be a string"},
		{"missing column", `{"operator":"eq","value":1}`, "column is required"},
		{"empty column", `{"column":"","operator":"eq","value":1}`, "non-empty"},
		{"column alias conflict", `{"column":"a","propertyName":"b","operator":"eq","value":1}`, "disagree"},
		{"between one value", `{"column":"a","operator":"between","value":[1]}`, "exactly 2"},
		{"between three values", `{"column":"a","operator":"between","value":[1,2,3]}`, "exactly 2"},
		{"between scalar", `{"column":"a","operator":"between","value":5}`, "requires an array"},
		{"in scalar", `{"column":"a","operator":"in","value":"CA"}`, "requires an array"},
		{"notIn missing", `{"column":"a","operator":"notIn"}`, "requires an array"},
		{"in nested array", `{"column":"a","operator":"in","value":[[1]]}`, "nested"},
		{"in null element", `{"column":"a","operator":"in","value":[null]}`, "null"},
		{"eq missing value", `{"column":"a","operator":"eq"}`, "requires a value"},
		{"eq array", `{"column":"a","operator":"eq","value":[1]}`, "requires a scalar"},
		{"eq object", `{"column":"a","operator":"eq","value":{"x":1}}`, "requires a scalar"},
		{"isNull with value", `{"column":"a","operator":"isNull","value":1}`, "takes no value"},
		{"bad logic", `{"logicalOperator":"XOR","expressions":[]}`, "unrecognized logical operator"},
		{"expressions not array", `{"expressions":{}}`, "expected an array"},
		{"mixed shapes", `{"expressions":[],"column":"a"}`, "unexpected field"},
		{"unknown comparison key", `{"column":"a","operator":"eq","value":1,"negate":true}`, "unexpected field"},
		{"not with extra key", `{"not":{"column":"a","operator":"isNull"},"x":1}`, "unexpected field"},
		{"child not object", `{"expressions":[42]}`, "expected an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), Limits{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrMalformedFilter) {
				t.Errorf("error %v does not wrap ErrMalformedFilter", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_ErrorPath(t *testing.T) {
	_, err := Parse([]byte(`{"expressions":[{"column":"a","operator":"eq","value":1},{"not":{"column":"b","operator":"in","value":3}}]}`), Limits{})
	v, ok := domain.AsViolation(err)
	if !ok {
		t.Fatalf("expected ViolationError, got %v", err)
	}
	if v.Path != "$.expressions[1].not.value" {
		t.Errorf("Path = %q", v.Path)
	}
}

func nested(depth int) string {
	doc := `{"column":"a","operator":"eq","value":1}`
	for i := 1; i < depth; i++ {
		doc = `{"not":` + doc + `}`
	}
	return doc
}

func TestParse_DepthLimit(t *testing.T) {
	if _, err := Parse([]byte(nested(20)), Limits{}); err != nil {
		t.Fatalf("depth 20 should parse: %v", err)
	}
	_, err := Parse([]byte(nested(21)), Limits{})
	if !errors.Is(err, domain.ErrMalformedFilter) {
		t.Fatalf("depth 21: error = %v, want ErrMalformedFilter", err)
	}
	if !strings.Contains(err.Error(), "deeper than 20") {
		t.Errorf("error = %q", err)
	}

	if _, err := Parse([]byte(nested(5)), Limits{MaxDepth: 4}); err == nil {
		t.Error("custom depth limit not applied")
	}
}

func TestParse_NodeLimit(t *testing.T) {
	items := make([]string, 10)
	for i := range items {
		items[i] = `{"column":"a","operator":"eq","value":1}`
	}
	doc := `{"expressions":[` + strings.Join(items, ",") + `]}`

	if _, err := Parse([]byte(doc), Limits{MaxNodes: 11}); err != nil {
		t.Fatalf("11 nodes within limit: %v", err)
	}
	if _, err := Parse([]byte(doc), Limits{MaxNodes: 10}); !errors.Is(err, domain.ErrMalformedFilter) {
		t.Errorf("error = %v, want ErrMalformedFilter", err)
	}
}

func TestParse_ValueLimit(t *testing.T) {
	list := func(n int) string {
		vals := make([]string, n)
		for i := range vals {
			vals[i] = strconv.Itoa(i)
		}
		return "[" + strings.Join(vals, ",") + "]"
	}

	doc := `{"expressions":[` +
		`{"column":"a","operator":"in","value":` + list(6) + `},` +
		`{"column":"b","operator":"between","value":[1,2]},` +
		`{"column":"c","operator":"eq","value":"x"},` +
		`{"column":"d","operator":"isNull"}]}`
	if _, err := Parse([]byte(doc), Limits{MaxValues: 9}); err != nil {
		t.Fatalf("9 values within limit: %v", err)
	}
	if _, err := Parse([]byte(doc), Limits{MaxValues: 8}); !errors.Is(err, domain.ErrMalformedFilter) {
		t.Errorf("error = %v, want ErrMalformedFilter", err)
	}

	huge := `{"column":"a","operator":"in","value":` + list(DefaultMaxValues+1) + `}`
	_, err := Parse([]byte(huge), Limits{})
	if !errors.Is(err, domain.ErrMalformedFilter) {
		t.Fatalf("error = %v, want ErrMalformedFilter", err)
	}
	if v, ok := domain.AsViolation(err); !ok || v.Path != "$.value" {
		t.Errorf("violation = %+v, want path $.value", v)
	}
}

func TestParse_UnexpectedFieldIsDeterministic(t *testing.T) {
	doc := `{"column":"a","operator":"eq","value":1,"zeta":1,"negate":true,"alpha":0}`
	for range 20 {
		_, err := Parse([]byte(doc), Limits{})
		if err == nil || !strings.Contains(err.Error(), `unexpected field "alpha"`) {
			t.Fatalf("error = %v, want unexpected field \"alpha\"", err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		`{"logicalOperator":"And","expressions":[]}`,
		`{"logicalOperator":"Or","expressions":[]}`,
		`{"column":"state","operator":"eq","value":"CA"}`,
		`{"expressions":[{"column":"a","operator":"gte","value":1.50}]}`,
		`{"not":{"not":{"column":"a","operator":"isNull"}}}`,
		`{"logicalOperator":"or","expressions":[
			{"propertyName":"state","operator":"IN","value":["CA",1,true]},
			{"column":"pop","operator":"between","value":[1000,"oops"]},
			{"column":"name","operator":"LK","value":"50%_off"}
		],"collections":[{"expressions":[{"column":"x","operator":"nin","value":[]}]}]}`,
	}
	for _, doc := range docs {
		first := mustParse(t, doc)
		b, err := Marshal(first)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		second := mustParse(t, string(b))
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip mismatch for %s\nfirst  %#v\nsecond %#v\ncanonical %s", doc, first, second, b)
		}
	}
}

func TestMarshal_CanonicalForm(t *testing.T) {
	n := NewAnd(
		NewComparison("state", Eq, Scalar("CA")),
		NewNot(NewComparison("deleted_at", IsNotNull, NoValue())),
	)
	got := String(n)
	want := `{"logicalOperator":"And","expressions":[{"column":"state","operator":"eq","value":"CA"},` +
		`{"not":{"column":"deleted_at","operator":"isNotNull"}}]}`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestStatsAndColumns(t *testing.T) {
	n := NewAnd(
		NewComparison("a", Eq, Scalar("x")),
		NewOr(NewNot(NewComparison("b", IsNull, NoValue()))),
	)
	depth, nodes := Stats(n)
	if depth != 4 || nodes != 5 {
		t.Errorf("Stats() = (%d, %d), want (4, 5)", depth, nodes)
	}
	if cols := Columns(n); !reflect.DeepEqual(cols, []string{"a", "b"}) {
		t.Errorf("Columns() = %v", cols)
	}
}
