package types

import "encoding/json"

// SuccessEnvelope is the `{data, message}` wrapper every backend response uses.
type SuccessEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope covers both `{message}` and `{error:{message}}` failure bodies.
type ErrorEnvelope struct {
	Message string    `json:"message"`
	Error   *APIError `json:"error,omitempty"`
}

// BestMessage returns the most specific human-readable message in the body.
func (e ErrorEnvelope) BestMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != nil {
		return e.Error.Message
	}
	return ""
}
