package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx answer from the marketplace API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

// TransportError means no response was received at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string    { return "api request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error    { return e.Err }
func (e *TransportError) NoResponse() bool { return true }

// IsUnauthorized reports a 401 that survived the refresh attempt. Callers
// treat it as an invalid session.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: extractMessage(body), Body: body}
}

// extractMessage pulls a human readable message out of the usual error
// envelopes: {"detail": ...}, {"error": ...}, {"message": ...} or
// {"field": ["msg", ...]}.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, k := range []string{"detail", "error", "message"} {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list, ok := payload[k].([]any); ok && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				return fmt.Sprintf("%s: %s", k, s)
			}
		}
	}
	return ""
}
