package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every error the proxy originates.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// RequestID correlates the error with server logs.
	RequestID string `json:"request_id,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeNotFound indicates an unknown route (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates an unsupported method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates the upstream could not be reached (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeServiceUnavailable indicates the service is not ready (503).
	ErrorTypeServiceUnavailable = "service_unavailable"
)

// Error code constants.
const (
	// CodeUpstreamUnreachable indicates the upstream request failed before a response.
	CodeUpstreamUnreachable = "upstream_unreachable"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"

	// CodeRouteNotFound indicates no route matched.
	CodeRouteNotFound = "route_not_found"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, CodeInternalError)
}

// NewBadGatewayError creates an error response for an unreachable upstream (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, CodeUpstreamUnreachable)
}

// NewNotFoundError creates an error response for unknown routes (404).
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, CodeRouteNotFound)
}

// NewMethodNotAllowedError creates an error response for unsupported methods (405).
func NewMethodNotAllowedError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeMethodNotAllowed, "")
}

// WithRequestID sets the correlation ID and returns e.
func (e *ErrorResponse) WithRequestID(id string) *ErrorResponse {
	e.Error.RequestID = id
	return e
}

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write encodes e as JSON with the status code matching its type.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Error.HTTPStatusCode())
	_ = json.NewEncoder(w).Encode(e)
}
