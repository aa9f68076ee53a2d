// Package errors provides the shared JSON-RPC error vocabulary used by
// every transport.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// JSON-RPC error codes shared by all transports. The -32xxx range follows
// the JSON-RPC 2.0 reserved space; -32000/-32001 are the MCP
// implementation-defined server errors.
const (
	CodeServerShuttingDown = -32000
	CodeSessionNotFound    = -32001
	CodeMethodNotAllowed   = -32601
	CodeInvalidParams      = -32602
	CodeInternalError      = -32603
)

// Common transport errors.
var (
	ErrMissingSessionID  = errors.New("missing session ID")
	ErrSessionNotFound   = errors.New("session not found")
	ErrShuttingDown      = errors.New("server is shutting down")
	ErrMethodNotAllowed  = errors.New("method not allowed")
	ErrTransportClosed   = errors.New("transport closed")
	ErrInvalidMessage    = errors.New("invalid JSON-RPC 2.0 message")
	ErrBatchNotSupported = errors.New("batch JSON-RPC requests are not supported")
)

// ProtocolError is a JSON-RPC error paired with the HTTP status the
// transports use when returning it over HTTP.
type ProtocolError struct {
	Code       int
	Message    string
	HTTPStatus int
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Prebuilt protocol errors matching the shared vocabulary.
var (
	// InvalidParams is returned when a request is missing its session id.
	InvalidParams = &ProtocolError{
		Code:       CodeInvalidParams,
		Message:    "Bad Request: Mcp-Session-Id header is required",
		HTTPStatus: http.StatusBadRequest,
	}

	// SessionNotFound is returned for an unknown or expired session id.
	SessionNotFound = &ProtocolError{
		Code:       CodeSessionNotFound,
		Message:    "Session not found",
		HTTPStatus: http.StatusNotFound,
	}

	// ServerShuttingDown is returned while the transport is draining.
	ServerShuttingDown = &ProtocolError{
		Code:       CodeServerShuttingDown,
		Message:    "Server is shutting down",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	// MethodNotAllowed is returned when an HTTP verb has no meaning for
	// the transport.
	MethodNotAllowed = &ProtocolError{
		Code:       CodeMethodNotAllowed,
		Message:    "Method not allowed",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	// InternalError is the catch-all for unexpected failures.
	InternalError = &ProtocolError{
		Code:       CodeInternalError,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
)

// envelope is the wire form of a JSON-RPC error response.
type envelope struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Error   envelopeError `json:"error"`
}

type envelopeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Envelope renders the protocol error as a JSON-RPC error response carrying
// the original request's id (nil for notifications).
func (e *ProtocolError) Envelope(id any) []byte {
	data, err := json.Marshal(envelope{
		JSONRPC: "2.0",
		ID:      id,
		Error:   envelopeError{Code: e.Code, Message: e.Message},
	})
	if err != nil {
		// Marshalling a flat struct cannot fail; keep a static fallback anyway.
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal server error"}}`)
	}
	return data
}

// WriteHTTP writes the protocol error to an HTTP response with the
// appropriate status code and the original request id.
func (e *ProtocolError) WriteHTTP(w http.ResponseWriter, id any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus)
	_, _ = w.Write(e.Envelope(id))
}

// WithMessage returns a copy of the protocol error with a more specific
// message. The code and HTTP status are preserved.
func (e *ProtocolError) WithMessage(format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Code:       e.Code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: e.HTTPStatus,
	}
}
