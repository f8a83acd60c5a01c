package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// MutationResult is the body shape of the carline action endpoints.
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
