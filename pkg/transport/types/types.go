// Package types defines the base contract shared by every transport, plus
// the request header vocabulary recognised by the gateway.
package types

import (
	"context"
	"net/http"
)

// HeaderSessionID carries the MCP session id on HTTP transports.
const HeaderSessionID = "Mcp-Session-Id"

// HeaderLastEventID is observed on SSE reconnection but not used for replay.
const HeaderLastEventID = "Last-Event-Id"

// Recognised x-mcp-* request headers. Query parameters with the same names
// (without the x-mcp- prefix) are promoted to these headers before
// processing.
const (
	HeaderAuthorization  = "Authorization"
	HeaderBouquet        = "X-MCP-Bouquet"
	HeaderMix            = "X-MCP-Mix"
	HeaderGradio         = "X-MCP-Gradio"
	HeaderNoImageContent = "X-MCP-No-Image-Content"
	HeaderJobTimeout     = "X-MCP-Job-Timeout"
	HeaderForceAuth      = "X-MCP-Force-Auth"
)

// StatelessConnectionCount is the sentinel returned by
// GetActiveConnectionCount on transports that do not track connections.
const StatelessConnectionCount = -1

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Transport is the base contract shared by the stdio, streamable-HTTP and
// stateless JSON transports.
type Transport interface {
	// Initialize binds endpoints and starts background timers.
	Initialize(ctx context.Context) error

	// Cleanup closes all sessions and stops timers.
	Cleanup(ctx context.Context) error

	// Shutdown marks the transport as draining: new connections are
	// rejected with a server_shutting_down protocol error.
	Shutdown(ctx context.Context) error

	// GetActiveConnectionCount returns the number of live connections, or
	// StatelessConnectionCount for transports that do not track them.
	GetActiveConnectionCount() int
}

// PromoteQueryParams copies the known x-mcp-* options from query parameters
// (named without the prefix) onto the request headers, so that downstream
// code only ever reads headers. Existing headers win.
func PromoteQueryParams(r *http.Request) {
	promotions := map[string]string{
		"bouquet":          HeaderBouquet,
		"mix":              HeaderMix,
		"gradio":           HeaderGradio,
		"no-image-content": HeaderNoImageContent,
		"job-timeout":      HeaderJobTimeout,
		"force-auth":       HeaderForceAuth,
	}
	query := r.URL.Query()
	for param, header := range promotions {
		if v := query.Get(param); v != "" && r.Header.Get(header) == "" {
			r.Header.Set(header, v)
		}
	}
}
