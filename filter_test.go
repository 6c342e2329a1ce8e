package viewdex

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFilter_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"zero", Filter{}, `{"logicalOperator":"And","expressions":[]}`},
		{"eq", Eq("state", "CA"), `{"column":"state","operator":"eq","value":"CA"}`},
		{"is null", IsNull("name"), `{"column":"name","operator":"isNull"}`},
		{"in", In("state", "CA", "NV"), `{"column":"state","operator":"in","value":["CA","NV"]}`},
		{"between", Between("population", 1, 10), `{"column":"population","operator":"between","value":[1,10]}`},
		{"decimal", Gt("score", decimal.RequireFromString("1.50")), `{"column":"score","operator":"gt","value":1.5}`},
		{"decimal list", In("score", decimal.New(25, -1), 3), `{"column":"score","operator":"in","value":[2.5,3]}`},
		{"not", Not(Eq("state", "CA")), `{"not":{"column":"state","operator":"eq","value":"CA"}}`},
		{
			"or",
			Or(StartsWith("name", "San"), EndsWith("name", "o")),
			`{"logicalOperator":"Or","expressions":[` +
				`{"column":"name","operator":"startsWith","value":"San"},` +
				`{"column":"name","operator":"endsWith","value":"o"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.f)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter([]byte(`{"propertyName":"state","operator":"EQ","value":"CA"}`))
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if got := f.String(); got != `{"column":"state","operator":"eq","value":"CA"}` {
		t.Errorf("String() = %s", got)
	}

	if _, err := ParseFilter([]byte(`{"column":"state","operator":"near"}`)); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestQuery_JSON(t *testing.T) {
	q := (&Engine{}).Query("County").
		Where(Eq("state", "CA")).
		OrderBy("population", Desc).
		Offset(10).
		Limit(5).
		Select("name").
		Distinct()
	got, err := q.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	want := `{"entity":"County","filter":{"column":"state","operator":"eq","value":"CA"},` +
		`"sort":[{"column":"population","direction":"DESC"}],"page":{"offset":10,"limit":5},` +
		`"columns":["name"],"distinct":true}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}
