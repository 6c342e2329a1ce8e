package domain

import (
	"errors"
	"fmt"
	"strings"
)

// User-input failure kinds. Every one of them is detected before SQL is built.
var (
	// ErrMalformedFilter signals a filter document that does not match the wire shape.
	ErrMalformedFilter = errors.New("malformed filter")
	// ErrEntityNotFound signals an unknown entity name.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrColumnNotFound signals an unknown column name.
	ErrColumnNotFound = errors.New("column not found")
	// ErrColumnNotAllowed signals a known column the caller may not reference.
	ErrColumnNotAllowed = errors.New("column not allowed")
	// ErrSortNotAllowed signals an inadmissible sort key.
	ErrSortNotAllowed = errors.New("sort not allowed")
	// ErrOperatorTypeMismatch signals an operator or value incompatible with the column type.
	ErrOperatorTypeMismatch = errors.New("operator type mismatch")
	// ErrInvalidPagination signals a negative offset or non-positive limit.
	ErrInvalidPagination = errors.New("invalid pagination")
)

// ErrRegistryInvariant signals that the registry and validator disagree. It is a code defect.
var ErrRegistryInvariant = errors.New("registry invariant violation")

var (
	// ErrUnauthorized signals missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals valid credentials without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrDraftUnavailable signals that the draft assistant is not configured.
	ErrDraftUnavailable = errors.New("draft assistant not configured")
	// ErrDraftProviderError signals an LLM provider failure.
	ErrDraftProviderError = errors.New("draft provider error")
)

// ViolationError wraps one of the failure kinds with the offending names.
// It never carries SQL text.
type ViolationError struct {
	Kind     error
	Entity   string
	Column   string
	Operator string
	Path     string
	Reason   string
}

func (e *ViolationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	switch {
	case e.Column != "":
		fmt.Fprintf(&b, ": column %q", e.Column)
	case e.Entity != "":
		fmt.Fprintf(&b, ": entity %q", e.Entity)
	}
	if e.Operator != "" {
		fmt.Fprintf(&b, " operator %q", e.Operator)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ViolationError) Unwrap() error { return e.Kind }

// NewMalformed creates a MalformedFilter violation located at path.
func NewMalformed(path, reason string) error {
	return &ViolationError{Kind: ErrMalformedFilter, Path: path, Reason: reason}
}

// NewColumnViolation creates a violation of the given kind naming a column.
func NewColumnViolation(kind error, entity, column, reason string) error {
	return &ViolationError{Kind: kind, Entity: entity, Column: column, Reason: reason}
}

// NewOperatorMismatch creates an OperatorTypeMismatch violation.
func NewOperatorMismatch(entity, column, operator, reason string) error {
	return &ViolationError{
		Kind:     ErrOperatorTypeMismatch,
		Entity:   entity,
		Column:   column,
		Operator: operator,
		Reason:   reason,
	}
}

// NewPaginationViolation creates an InvalidPagination violation.
func NewPaginationViolation(reason string) error {
	return &ViolationError{Kind: ErrInvalidPagination, Reason: reason}
}

// AsViolation extracts the ViolationError from err, if any.
func AsViolation(err error) (*ViolationError, bool) {
	var v *ViolationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsUserError reports whether err belongs to the user-input failure kinds.
func IsUserError(err error) bool {
	for _, k := range []error{
		ErrMalformedFilter, ErrEntityNotFound, ErrColumnNotFound, ErrColumnNotAllowed,
		ErrSortNotAllowed, ErrOperatorTypeMismatch, ErrInvalidPagination,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

var codes = []struct {
	kind error
	code string
}{
	{ErrMalformedFilter, "malformed_filter"},
	{ErrEntityNotFound, "entity_not_found"},
	{ErrColumnNotFound, "column_not_found"},
	{ErrColumnNotAllowed, "column_not_allowed"},
	{ErrSortNotAllowed, "sort_not_allowed"},
	{ErrOperatorTypeMismatch, "operator_type_mismatch"},
	{ErrInvalidPagination, "invalid_pagination"},
	{ErrUnauthorized, "unauthorized"},
	{ErrForbidden, "forbidden"},
	{ErrRateLimited, "rate_limited"},
	{ErrDraftUnavailable, "draft_unavailable"},
	{ErrDraftProviderError, "draft_provider_error"},
}

// Code returns the wire code for err's failure kind, or "internal_error".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "internal_error"
}
