package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/argrank/internal/db"
	"github.com/kailas-cloud/argrank/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeSessionNotFound  ErrorCode = "session_not_found"
	CodeInvalidRange     ErrorCode = "invalid_range"
	CodeTrackerBusy      ErrorCode = "tracker_busy"
	CodeIndexNotFound    ErrorCode = "index_not_found"
	CodeEmbeddingFailure ErrorCode = "embedding_provider_error"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// errorHandlers are tried in order; the first match wins.
var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
	sentinelHandler(domain.ErrInvalidRange, http.StatusBadRequest, CodeInvalidRange),
	sentinelHandler(domain.ErrTrackerBusy, http.StatusConflict, CodeTrackerBusy),
	sentinelHandler(db.ErrIndexNotFound, http.StatusServiceUnavailable, CodeIndexNotFound),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingFailure),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The response carries the sentinel's message, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
