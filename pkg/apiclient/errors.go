package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/labujaya/lastbite/pkg/errors"
	"github.com/labujaya/lastbite/pkg/types"
)

const networkErrorMessage = "network error: unable to reach server"

var (
	// ErrNoRefreshToken is returned to every request waiting on a refresh
	// when no refresh token is stored.
	ErrNoRefreshToken = pkgerrors.New(pkgerrors.CodeUnauthorized, "no refresh token")
	// ErrRefresherStopped is returned when a refresh is requested after Stop.
	ErrRefresherStopped = pkgerrors.New(pkgerrors.CodeDependency, "token refresher stopped")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: body}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Message = strings.TrimSpace(envelope.BestMessage())
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

func (e *APIError) BodyMessage() string {
	return e.Message
}

// StatusCode returns the HTTP status carried by err, or 0 if none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ErrorMessage extracts the human-readable message for a failed call: the
// server's body message when the backend answered, otherwise the typed
// error's message for local and network failures, otherwise fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return fallback
}

func sessionExpired(cause error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, "session expired, please log in again")
}
