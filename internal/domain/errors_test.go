package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestViolationError_UnwrapsToKind(t *testing.T) {
	err := NewColumnViolation(ErrColumnNotAllowed, "County", "secret_score", "")
	wrapped := fmt.Errorf("validate filter: %w", err)

	if !errors.Is(wrapped, ErrColumnNotAllowed) {
		t.Fatalf("errors.Is(%v, ErrColumnNotAllowed) = false", wrapped)
	}
	if errors.Is(wrapped, ErrSortNotAllowed) {
		t.Error("unexpected match with ErrSortNotAllowed")
	}

	v, ok := AsViolation(wrapped)
	if !ok {
		t.Fatal("AsViolation returned false")
	}
	if v.Column != "secret_score" {
		t.Errorf("Column = %q, want secret_score", v.Column)
	}
}

func TestViolationError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			"malformed with path",
			NewMalformed("expressions[1].value", "between requires exactly 2 values"),
			[]string{"malformed filter", "expressions[1].value", "exactly 2"},
		},
		{
			"operator mismatch",
			NewOperatorMismatch("County", "state", "gt", "not orderable"),
			[]string{"operator type mismatch", `column "state"`, `operator "gt"`},
		},
		{
			"pagination",
			NewPaginationViolation("offset must be non-negative"),
			[]string{"invalid pagination", "non-negative"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("error %q does not contain %q", msg, w)
				}
			}
		})
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(NewMalformed("", "x")) {
		t.Error("malformed filter should be a user error")
	}
	if !IsUserError(fmt.Errorf("lookup: %w", ErrEntityNotFound)) {
		t.Error("entity not found should be a user error")
	}
	if IsUserError(ErrRegistryInvariant) {
		t.Error("registry invariant must not be a user error")
	}
	if IsUserError(errors.New("boom")) {
		t.Error("arbitrary error must not be a user error")
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewMalformed("$", "x"), "malformed_filter"},
		{fmt.Errorf("validate: %w", NewColumnViolation(ErrColumnNotAllowed, "County", "secret_score", "")), "column_not_allowed"},
		{NewPaginationViolation("limit must be at least 1"), "invalid_pagination"},
		{&ViolationError{Kind: ErrRegistryInvariant}, "internal_error"},
		{fmt.Errorf("%w: expired", ErrUnauthorized), "unauthorized"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tt := range tests {
		if got := Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
