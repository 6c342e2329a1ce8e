package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/domain"
	logpkg "github.com/kailas-cloud/viewdex/internal/logger"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
)

// Wire codes that have no domain sentinel.
const (
	codeBadRequest       = "bad_request"
	codeNotFound         = "not_found"
	codeInternalError    = "internal_error"
	codeExecutionOff     = "execution_disabled"
	codeMethodNotAllowed = "method_not_allowed"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	Column   string `json:"column,omitempty"`
	Operator string `json:"operator,omitempty"`
	Path     string `json:"path,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrMalformedFilter, http.StatusBadRequest),
		sentinelHandler(domain.ErrEntityNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrColumnNotFound, http.StatusBadRequest),
		sentinelHandler(domain.ErrColumnNotAllowed, http.StatusForbidden),
		sentinelHandler(domain.ErrSortNotAllowed, http.StatusBadRequest),
		sentinelHandler(domain.ErrOperatorTypeMismatch, http.StatusBadRequest),
		sentinelHandler(domain.ErrInvalidPagination, http.StatusBadRequest),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests),
		sentinelHandler(domain.ErrDraftUnavailable, http.StatusNotImplemented),
		sentinelHandler(domain.ErrDraftProviderError, http.StatusBadGateway),
		executionDisabledHandler,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message. Violations carry names the
// caller sent, never SQL; anything else collapses to its sentinel text.
func safeDomainMessage(err error) string {
	if v, ok := domain.AsViolation(err); ok && v.Kind != domain.ErrRegistryInvariant {
		return v.Error()
	}
	sentinels := []error{
		domain.ErrUnauthorized,
		domain.ErrForbidden,
		domain.ErrRateLimited,
		domain.ErrDraftUnavailable,
		domain.ErrDraftProviderError,
		searchuc.ErrExecutionDisabled,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	if domain.IsUserError(err) {
		return err.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Violation details (entity, column, operator, path) are copied into the body.
func sentinelHandler(sentinel error, status int) errorHandler {
	code := domain.Code(sentinel)
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := ErrorResponse{Code: code, Message: msg}
		if v, ok := domain.AsViolation(err); ok {
			resp.Entity = v.Entity
			resp.Column = v.Column
			resp.Operator = v.Operator
			resp.Path = v.Path
		}
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, status, resp)
		return true
	}
}

func executionDisabledHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, searchuc.ErrExecutionDisabled) {
		return false
	}
	writeError(w, http.StatusNotImplemented, codeExecutionOff, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Debug("request rejected", zap.String("code", domain.Code(err)), zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
