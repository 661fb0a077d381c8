package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/spraylog/internal/backend"
)

// APIError represents a non-2xx response from the records API.
type APIError struct {
	StatusCode int
	// Detail is the server-supplied message, set only when the response was
	// JSON carrying a "detail" string.
	Detail string
	Body   []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Serverfout (%d)", e.StatusCode)
}

// Is lets a 404 match backend.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return e != nil && target == backend.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Retryable reports whether the status is considered transient.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

func newAPIError(status int, contentType string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: body}
	if isJSON(contentType) {
		var payload struct {
			Detail any `json:"detail"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if s, ok := payload.Detail.(string); ok {
				apiErr.Detail = strings.TrimSpace(s)
			}
		}
	}
	return apiErr
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
