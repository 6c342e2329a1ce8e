package page

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		doc  string
		want Request
	}{
		{``, Request{}},
		{`null`, Request{}},
		{`{}`, Request{}},
		{`{"offset": 5}`, Request{Offset: 5}},
		{`{"limit": 0}`, Request{Limit: 0, HasLimit: true}},
		{`{"offset": -1, "limit": 10}`, Request{Offset: -1, Limit: 10, HasLimit: true}},
	}
	for _, tt := range tests {
		got, err := Parse([]byte(tt.doc))
		if err != nil {
			t.Errorf("Parse(%s) unexpected error: %v", tt.doc, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%s) = %+v, want %+v", tt.doc, got, tt.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, doc := range []string{`[]`, `{"limit": 1.5}`, `{"offset": "0"}`} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, domain.ErrInvalidPagination) {
			t.Errorf("Parse(%s) error = %v, want ErrInvalidPagination", doc, err)
		}
	}
}

func TestLegacy(t *testing.T) {
	if got := Legacy(0, 2); got.HasLimit || !got.ByIndex || got.Index != 2 {
		t.Errorf("Legacy(0, 2) = %+v, want default limit", got)
	}
	if got := Legacy(50, 1); !got.HasLimit || got.Limit != 50 {
		t.Errorf("Legacy(50, 1) = %+v", got)
	}
	if got := Legacy(-5, 0); !got.HasLimit || got.Limit != -5 {
		t.Errorf("Legacy(-5, 0) = %+v, negative size must reach validation", got)
	}
}
