package db

import (
	"errors"
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func TestSplitView(t *testing.T) {
	tests := []struct {
		in, schema, name string
	}{
		{"v_county", "", "v_county"},
		{"public.v_county", "public", "v_county"},
		{"analytics.public.v_county", "public", "v_county"},
	}
	for _, tt := range tests {
		schema, name := SplitView(tt.in)
		if schema != tt.schema || name != tt.name {
			t.Errorf("SplitView(%q) = (%q, %q), want (%q, %q)", tt.in, schema, name, tt.schema, tt.name)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Op: OpQuery, Err: ErrViewNotFound}
	if !errors.Is(err, ErrViewNotFound) {
		t.Error("errors.Is failed through db.Error")
	}
	if err.Error() != "QUERY: db: view not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRows_Len(t *testing.T) {
	var r *Rows
	if r.Len() != 0 {
		t.Error("nil Rows must have zero length")
	}
	r = &Rows{Values: [][]any{{1}, {2}}}
	if r.Len() != 2 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestDescribeQuery(t *testing.T) {
	sql, args, err := DescribeQuery("analytics.public.v_county", sq.Dollar)
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT column_name, data_type, ordinal_position FROM information_schema.columns " +
		"WHERE table_name = $1 AND table_schema = $2 ORDER BY ordinal_position"
	if sql != want {
		t.Errorf("sql\n got  %s\n want %s", sql, want)
	}
	if len(args) != 2 || args[0] != "v_county" || args[1] != "public" {
		t.Errorf("args = %v", args)
	}

	sql, args, err = DescribeQuery("v_county", sq.Question)
	if err != nil {
		t.Fatal(err)
	}
	if sql != "SELECT column_name, data_type, ordinal_position FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position" {
		t.Errorf("sql = %s", sql)
	}
	if len(args) != 1 {
		t.Errorf("args = %v", args)
	}
}
