package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a normalized backend error. The server-supplied structured body is
// preferred over the generic transport error whenever one is present.
type Error struct {
	StatusCode int
	Message    string `json:"message"`
	// Expired is set on 401 responses when the backend explicitly reports a
	// structurally expired token, as opposed to bad or missing credentials.
	Expired bool `json:"expired"`
	// FieldErrors carries 422-style per-field validation messages.
	FieldErrors map[string]string `json:"errors"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsValidation reports whether err carries per-field validation messages.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && len(apiErr.FieldErrors) > 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorFromResponse builds an *Error from a non-2xx response body. A body
// that is not valid JSON still yields an Error with the status code set.
func errorFromResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	// Laravel-style validation bodies nest messages as {"errors": {"field": ["msg"]}}.
	var raw struct {
		Message string              `json:"message"`
		Expired bool                `json:"expired"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		apiErr.Message = raw.Message
		apiErr.Expired = raw.Expired
		if len(raw.Errors) > 0 {
			apiErr.FieldErrors = make(map[string]string, len(raw.Errors))
			for field, msgs := range raw.Errors {
				if len(msgs) > 0 {
					apiErr.FieldErrors[field] = msgs[0]
				}
			}
		}
	}

	return apiErr
}
