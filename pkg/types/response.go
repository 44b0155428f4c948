// Package types holds the JSON envelopes shared by every API response.
package types

// SuccessEnvelope wraps every successful payload under a "data" key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the single error shape clients see. No stack traces or
// SQL text ever leave the server through it.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
