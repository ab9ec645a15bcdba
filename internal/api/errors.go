package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	xerrors "swiftel-client/internal/pkg/errors"
)

const genericMessage = "An unexpected error occurred."

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status      int                 `json:"-"`
	Msg         string              `json:"message"`
	FieldErrors map[string][]string `json:"errors"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	_ = json.Unmarshal(body, e)
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message())
}

// Message is the text shown to the user: the backend message, else the
// field validation errors joined, else a generic sentence.
func (e *APIError) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if len(e.FieldErrors) > 0 {
		fields := make([]string, 0, len(e.FieldErrors))
		for f := range e.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		var all []string
		for _, f := range fields {
			all = append(all, e.FieldErrors[f]...)
		}
		if len(all) > 0 {
			return strings.Join(all, ", ")
		}
	}
	return genericMessage
}

// Unwrap maps well-known statuses onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return xerrors.ErrUnauthorized
	case http.StatusForbidden:
		return xerrors.ErrForbidden
	case http.StatusNotFound:
		return xerrors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return xerrors.ErrInvalidInput
	default:
		return nil
	}
}

// ErrorMessage returns the user facing text for any error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
