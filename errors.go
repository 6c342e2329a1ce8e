package viewdex

import (
	"github.com/kailas-cloud/viewdex/internal/domain"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrMalformedFilter      = domain.ErrMalformedFilter
	ErrEntityNotFound       = domain.ErrEntityNotFound
	ErrColumnNotFound       = domain.ErrColumnNotFound
	ErrColumnNotAllowed     = domain.ErrColumnNotAllowed
	ErrSortNotAllowed       = domain.ErrSortNotAllowed
	ErrOperatorTypeMismatch = domain.ErrOperatorTypeMismatch
	ErrInvalidPagination    = domain.ErrInvalidPagination
	ErrRegistryInvariant    = domain.ErrRegistryInvariant
	ErrExecutionDisabled    = searchuc.ErrExecutionDisabled
)

// IsUserError reports whether err was caused by the request rather than the engine.
func IsUserError(err error) bool { return domain.IsUserError(err) }

// ErrorCode returns the stable snake_case code of err, or "internal_error".
func ErrorCode(err error) string { return domain.Code(err) }
