package web

// errors.go provides unified error responses for the records API.
//
// Every error is:
//   - logged with full technical detail and the request id
//   - returned as JSON {"detail","code","action"}, where detail is the text a
//     client shows to the user
//
// The status code is derived from the error itself, so handlers just call
// respondError(w, r, err).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/spraylog/internal/backend"
	"github.com/JonMunkholm/spraylog/internal/export"
	"github.com/JonMunkholm/spraylog/internal/logging"
	"github.com/JonMunkholm/spraylog/internal/record"
)

// errInvalidBody wraps JSON decoding failures of request bodies.
var errInvalidBody = errors.New("invalid request body")

// errRateLimited is reported when a client exceeds its request budget.
var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
}

// respondError logs err and writes the mapped error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := MapError(err)

	detail := msg.Message
	var verrs record.ValidationErrors
	if errors.As(err, &verrs) {
		// Validation text names every offending field, which the user needs.
		detail = verrs.Error()
	}

	logger := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeErrorResponse(w, status, ErrorResponse{Detail: detail, Code: msg.Code, Action: msg.Action})
}

func statusFor(err error) int {
	var verrs record.ValidationErrors
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusConflict
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
