package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/daybook/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidNote), errors.Is(err, apperr.ErrEmptyPassword):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDateConflict), errors.Is(err, apperr.ErrNoPendingPrompt):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrLoadFormat), errors.Is(err, apperr.ErrDecryption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrCapabilityUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, apperr.ErrHandleWrite):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrCacheWrite):
		return http.StatusInsufficientStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Unexpected errors are logged and
// hidden from the client.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	if status >= http.StatusInternalServerError {
		slog.Warn(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(err.Error()))
}
