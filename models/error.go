package models

// AuthenticationError rejects a handshake: bad, missing or revoked token, or a
// blocked/deactivated account. The connection is never established.
type AuthenticationError struct {
	Reason string
}

func (e AuthenticationError) Error() string { return e.Reason }

// AuthorizationError means an authenticated principal acted on an order it is
// not a participant of. The connection stays open.
type AuthorizationError struct {
	Reason string
}

func (e AuthorizationError) Error() string { return e.Reason }

// InvalidStateError means the operation is not valid right now, e.g. a message
// sent to a chat that was never activated, or a malformed subscription request.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string { return e.Reason }

// NotFoundError means the referenced order or user does not exist
type NotFoundError struct {
	Reason string
}

func (e NotFoundError) Error() string { return e.Reason }

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// ErrorResponse is the generic JSON error body for REST handlers
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// HealthCheckResponse is returned on /health
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
