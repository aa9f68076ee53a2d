// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
	"github.com/stacklok/hubgate/pkg/spaces"
)

// Sentinel errors for upstream call failures. Cancellation is deliberately
// distinct from failure: callers must not count a cancelled call against a
// space's health.
var (
	ErrUpstreamUnavailable = errors.New("space endpoint is unavailable")
	ErrUpstreamTimeout     = errors.New("space call timed out")
	ErrCancelled           = errors.New("space call was cancelled")
)

// methodProgress is the notification method relayed to the caller.
const methodProgress = "notifications/progress"

// clientName identifies the gateway to upstream spaces.
const clientName = "hubgate"

// upstreamClient is the slice of the MCP client used per call.
// *client.Client satisfies it; tests substitute a fake.
type upstreamClient interface {
	OnNotification(handler func(notification mcp.JSONRPCNotification))
	Start(ctx context.Context) error
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// clientFactory opens a streaming MCP client against a space. The token is
// forwarded only for private spaces, in the hub's dedicated header so it
// never collides with the caller's own Authorization.
type clientFactory func(space *spaces.Space, token string) (upstreamClient, error)

func defaultClientFactory(space *spaces.Space, token string) (upstreamClient, error) {
	builder := networking.NewHTTPClientBuilder().WithTimeout(0)
	if space.Private && token != "" {
		builder = builder.WithHeader(networking.HeaderHubAuthorization, "Bearer "+token)
	}
	return client.NewSSEMCPClient(
		space.SSEURL(),
		transport.WithHTTPClient(builder.Build()),
	)
}

// CallRequest is one upstream tool invocation.
type CallRequest struct {
	Space     *spaces.Space
	ToolName  string // upstream name, not the synthesized outward name
	Arguments map[string]any
	Token     string

	// ProgressToken, when non-nil, is attached to the upstream request and
	// upstream progress notifications carrying it are forwarded through
	// OnProgress in arrival order.
	ProgressToken any
	OnProgress    func(params map[string]any)
}

// Invoker opens a fresh upstream session per tool call. No upstream
// connection is ever reused: a space may have restarted or been rebuilt
// between calls, and a stale session would fail in confusing ways.
type Invoker struct {
	newClient clientFactory
}

// NewInvoker creates an Invoker using the default SSE client factory.
func NewInvoker() *Invoker {
	return &Invoker{newClient: defaultClientFactory}
}

// Call runs one tool invocation against a space: open, initialize, call,
// close. The session is closed on every exit path, including cancellation.
func (i *Invoker) Call(ctx context.Context, req *CallRequest) (*mcp.CallToolResult, error) {
	c, err := i.newClient(req.Space, req.Token)
	if err != nil {
		return nil, wrapUpstreamError(err, req.Space.ID.String(), "create client")
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Debugf("Failed to close upstream client: %v", err)
		}
	}()

	if req.ProgressToken != nil && req.OnProgress != nil {
		c.OnNotification(func(n mcp.JSONRPCNotification) {
			if n.Method != methodProgress {
				return
			}
			params := n.Params.AdditionalFields
			if params["progressToken"] != req.ProgressToken {
				return
			}
			req.OnProgress(params)
		})
	}

	if err := c.Start(ctx); err != nil {
		return nil, wrapUpstreamError(err, req.Space.ID.String(), "start session")
	}

	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: "1.0.0",
			},
		},
	}); err != nil {
		return nil, wrapUpstreamError(err, req.Space.ID.String(), "initialize session")
	}

	params := mcp.CallToolParams{
		Name:      req.ToolName,
		Arguments: req.Arguments,
	}
	if req.ProgressToken != nil {
		params.Meta = &mcp.Meta{ProgressToken: req.ProgressToken}
	}

	start := time.Now()
	result, err := c.CallTool(ctx, mcp.CallToolRequest{Params: params})
	if err != nil {
		return nil, wrapUpstreamError(err, req.Space.ID.String(), "call tool")
	}
	logger.Debugw("space tool call completed",
		"space", req.Space.ID.String(),
		"tool", req.ToolName,
		"duration", time.Since(start),
		"isError", result.IsError,
	)
	return result, nil
}

// wrapUpstreamError classifies an upstream failure under a sentinel so
// callers can branch with errors.Is. Structured detection first, string
// matching as a fallback for SDK errors that arrive flattened.
func wrapUpstreamError(err error, space, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s for space %s: %v", ErrCancelled, operation, space, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s for space %s: %v", ErrUpstreamTimeout, operation, space, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s for space %s: %v", ErrUpstreamTimeout, operation, space, err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return fmt.Errorf("%w: %s for space %s: %v", ErrUpstreamTimeout, operation, space, err)
	}
	if strings.Contains(msg, "context canceled") {
		return fmt.Errorf("%w: %s for space %s: %v", ErrCancelled, operation, space, err)
	}

	return fmt.Errorf("%w: %s for space %s: %v", ErrUpstreamUnavailable, operation, space, err)
}
