// Package page models requested pagination before it is bounded.
package page

import (
	"bytes"
	"encoding/json"

	"github.com/kailas-cloud/viewdex/internal/domain"
)

// Request is pagination as the caller sent it.
// The legacy form gives a page size and a zero-based page index instead of an offset.
type Request struct {
	Offset   int
	Limit    int
	HasLimit bool
	Index    int
	ByIndex  bool
}

// Window is pagination after validation: a non-negative offset and a bounded limit.
type Window struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type pageJSON struct {
	Offset *int `json:"offset"`
	Limit  *int `json:"limit"`
}

// Parse decodes the {"offset","limit"} object. Both fields are optional.
func Parse(raw json.RawMessage) (Request, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Request{}, nil
	}
	var pj pageJSON
	if err := json.Unmarshal(raw, &pj); err != nil {
		return Request{}, domain.NewPaginationViolation("page must be an object with integer offset and limit")
	}
	var r Request
	if pj.Offset != nil {
		r.Offset = *pj.Offset
	}
	if pj.Limit != nil {
		r.Limit = *pj.Limit
		r.HasLimit = true
	}
	return r, nil
}

// Legacy builds a Request from pageSize/pageIndex. A zero size means "use the default".
func Legacy(size, index int) Request {
	r := Request{Index: index, ByIndex: true}
	if size != 0 {
		r.Limit = size
		r.HasLimit = true
	}
	return r
}
