package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stashdb/stashdb/pkg/domain"
)

// ErrorResponse represents a standard JSON error response. Kind is a stable
// machine-readable error class; Message is for humans.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// WriteJSONError writes a JSON error response with the given status code,
// error kind, and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Kind:    kind,
		Message: message,
		Code:    statusCode,
	}

	json.NewEncoder(w).Encode(response)
}

// writeCommandError maps a command failure to its stable error kind and
// status code. Transient write conflicts never reach this function; they are
// retried away inside the command.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthorized):
		WriteJSONError(w, http.StatusForbidden, "NotAuthorized", err.Error())
	case errors.Is(err, domain.ErrNamespaceNotFound):
		WriteJSONError(w, http.StatusNotFound, "NamespaceNotFound", err.Error())
	case errors.Is(err, domain.ErrCursorNotFound):
		WriteJSONError(w, http.StatusNotFound, "CursorNotFound", err.Error())
	case errors.Is(err, domain.ErrCursorInUse):
		WriteJSONError(w, http.StatusConflict, "CursorInUse", err.Error())
	case errors.Is(err, domain.ErrTooManyCursors):
		WriteJSONError(w, http.StatusTooManyRequests, "TooManyCursors", err.Error())
	case errors.Is(err, domain.ErrCollectionExists):
		WriteJSONError(w, http.StatusConflict, "CollectionExists", err.Error())
	case errors.Is(err, domain.ErrIndexExists):
		WriteJSONError(w, http.StatusConflict, "IndexExists", err.Error())
	case errors.Is(err, domain.ErrIndexNotFound):
		WriteJSONError(w, http.StatusNotFound, "IndexNotFound", err.Error())
	case errors.Is(err, domain.ErrBadValue):
		WriteJSONError(w, http.StatusBadRequest, "BadValue", err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, "InternalError", err.Error())
	}
}
