// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stateless implements the per-request JSON transport: every POST
// builds a fresh scoped server, handles one message and tears everything
// down. Two optimisations preserve latency without breaking statelessness:
// a stub responder for methods that need no tool surface, and skipping
// space discovery for requests that cannot touch space tools.
package stateless

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
	"github.com/stacklok/hubgate/pkg/tools"
	"github.com/stacklok/hubgate/pkg/transport"
	transporterrors "github.com/stacklok/hubgate/pkg/transport/errors"
	"github.com/stacklok/hubgate/pkg/transport/metrics"
	"github.com/stacklok/hubgate/pkg/transport/session"
	"github.com/stacklok/hubgate/pkg/transport/types"
)

// maxBodyBytes caps an inbound JSON-RPC body.
const maxBodyBytes = 10 << 20

// tempLogDefault is the starting budget for temporary diagnostic logging
// of session-resume failures. Each emission decrements; at zero the
// logging is silent. Resetting the budget is idempotent.
const tempLogDefault = 100

// Transport is the stateless JSON transport.
type Transport struct {
	settings *config.Settings
	factory  *gateway.Factory
	metrics  *metrics.Metrics
	version  string

	// analytics tracks sessions for observability only; it never affects
	// routing or correctness. Nil unless analytics mode is on.
	analytics *session.Manager

	draining    atomic.Bool
	tempLogLeft atomic.Int64
}

// New creates the transport.
func New(settings *config.Settings, factory *gateway.Factory, version string) *Transport {
	t := &Transport{
		settings: settings,
		factory:  factory,
		metrics:  metrics.New(),
		version:  version,
	}
	t.tempLogLeft.Store(tempLogDefault)
	if settings.AnalyticsMode {
		t.analytics = session.NewManager(settings.StaleTimeout, settings.StaleCheckInterval)
	}
	return t
}

// Initialize starts the analytics sweep when analytics mode is on.
func (t *Transport) Initialize(_ context.Context) error {
	if t.analytics != nil {
		t.analytics.Start()
	}
	return nil
}

// Cleanup stops the analytics sweep.
func (t *Transport) Cleanup(_ context.Context) error {
	if t.analytics != nil {
		t.analytics.Stop()
	}
	return nil
}

// Shutdown marks the transport draining.
func (t *Transport) Shutdown(_ context.Context) error {
	t.draining.Store(true)
	return nil
}

// GetActiveConnectionCount returns the stateless sentinel: this transport
// holds no connections between requests.
func (t *Transport) GetActiveConnectionCount() int {
	return types.StatelessConnectionCount
}

// GetSessions returns the analytics session snapshot, empty outside
// analytics mode.
func (t *Transport) GetSessions() []session.Metadata {
	if t.analytics == nil {
		return nil
	}
	return t.analytics.Snapshot()
}

// GetMetrics returns the metrics snapshot.
func (t *Transport) GetMetrics() metrics.Snapshot {
	return t.metrics.Snapshot()
}

// Metrics exposes the transport-owned metrics instance.
func (t *Transport) Metrics() *metrics.Metrics {
	return t.metrics
}

// GetConfiguration reports the effective transport configuration.
func (t *Transport) GetConfiguration() map[string]any {
	return map[string]any{
		"strictCompliance": t.settings.StrictCompliance,
		"analyticsMode":    t.settings.AnalyticsMode,
	}
}

// ResetTemporaryLogging restores the diagnostic logging budget. Calling it
// repeatedly has no additional effect.
func (t *Transport) ResetTemporaryLogging() {
	t.tempLogLeft.Store(tempLogDefault)
}

// RegisterRoutes mounts the MCP endpoints on the router.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Post("/mcp", t.handlePost)
	r.Get("/mcp", t.handleGet)
	r.Delete("/mcp", t.handleDelete)
}

func (t *Transport) handlePost(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		transporterrors.ServerShuttingDown.WriteHTTP(w, nil)
		return
	}
	t.metrics.RecordIP(transport.RemoteIP(r))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		transporterrors.InternalError.WriteHTTP(w, nil)
		return
	}

	peeked := transport.Peek(body)
	switch {
	case !peeked.Valid:
		transporterrors.InvalidParams.WithMessage("Parse error: invalid JSON-RPC message").WriteHTTP(w, nil)
		return
	case peeked.IsBatch:
		transporterrors.InvalidParams.WithMessage("Batch requests are not supported").WriteHTTP(w, nil)
		return
	case peeked.IsResponse:
		w.WriteHeader(http.StatusAccepted)
		return
	}

	clientName := transport.ClientName(body)
	t.trackAnalytics(w, r, peeked, clientName)

	ctx := r.Context()
	buildReq := gateway.FromHTTP(r)
	buildReq.ClientName = clientName
	if buildReq.JobTimeoutSet {
		ctx = tools.WithJobTimeout(ctx, buildReq.JobTimeout)
	}

	srv := t.buildServer(ctx, r, body, peeked, buildReq)
	if srv == nil {
		t.metrics.RecordHTTPError(transporterrors.InternalError.HTTPStatus)
		transporterrors.InternalError.WriteHTTP(w, peeked.ID)
		return
	}

	start := time.Now()
	response := srv.HandleMessage(ctx, body)
	t.metrics.RecordRequest(peeked.Method, clientName, time.Since(start), transport.IsErrorResponse(response))
	if peeked.Method == transport.MethodToolsCall {
		t.metrics.RecordToolCall(clientName)
	}

	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	transport.WriteJSON(w, http.StatusOK, response)
}

// buildServer picks the cheapest server that can answer the request: the
// stub for protocol bookkeeping, a full build otherwise, with space
// discovery skipped whenever the request cannot reach a space tool.
func (t *Transport) buildServer(
	ctx context.Context, _ *http.Request, body []byte, peeked transport.Peeked, buildReq *gateway.Request,
) *server.MCPServer {
	if !transport.IsCoreMethod(peeked.Method, buildReq.ClientName) {
		return t.stubServer()
	}

	switch peeked.Method {
	case transport.MethodInitialize:
		buildReq.SkipGradio = true
	case transport.MethodToolsCall:
		// A call that targets a synthesized space tool needs discovery no
		// matter what headers came with it.
		buildReq.SkipGradio = !proxy.IsProxiedName(transport.ToolCallName(body))
	case transport.MethodPromptsList, transport.MethodPromptsGet:
		buildReq.SkipGradio = true
	}

	built, err := t.factory.Build(ctx, buildReq)
	if err != nil {
		logger.Errorw("server build failed", "error", err)
		return nil
	}
	return built.Server
}

// stubServer answers protocol bookkeeping without any tool registration.
func (t *Transport) stubServer() *server.MCPServer {
	return server.NewMCPServer(
		"hubgate",
		t.version,
		server.WithPromptCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
	)
}

// trackAnalytics maintains the observability-only session table. It never
// changes what the request returns.
func (t *Transport) trackAnalytics(
	w http.ResponseWriter, r *http.Request, peeked transport.Peeked, clientName string,
) {
	if t.analytics == nil {
		return
	}

	if peeked.Method == transport.MethodInitialize {
		sess := session.New(
			uuid.NewString(),
			transport.IsAuthenticated(r.Context()),
			&session.ClientInfo{Name: clientName},
			nil,
			transport.RemoteIP(r),
		)
		t.analytics.Add(sess)
		t.metrics.RecordSessionCreated()
		t.metrics.RecordConnection(clientName, sess.IsAuthenticated())
		w.Header().Set(types.HeaderSessionID, sess.ID())
		return
	}

	sessionID := r.Header.Get(types.HeaderSessionID)
	if sessionID == "" {
		return
	}
	if sess, ok := t.analytics.Get(sessionID); ok {
		sess.Touch()
		return
	}
	t.metrics.RecordSessionResumeFailed()
	if t.tempLogLeft.Add(-1) >= 0 {
		logger.Warnw("analytics session resume failed",
			"session", sessionID,
			"method", peeked.Method,
			"client", clientName,
			"ip", transport.RemoteIP(r),
		)
	}
}

func (t *Transport) handleGet(w http.ResponseWriter, _ *http.Request) {
	if t.settings.StrictCompliance {
		t.metrics.RecordHTTPError(transporterrors.MethodNotAllowed.HTTPStatus)
		transporterrors.MethodNotAllowed.WriteHTTP(w, nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(welcomePage))
}

func (t *Transport) handleDelete(w http.ResponseWriter, r *http.Request) {
	if t.analytics == nil {
		t.metrics.RecordHTTPError(transporterrors.MethodNotAllowed.HTTPStatus)
		transporterrors.MethodNotAllowed.WriteHTTP(w, nil)
		return
	}
	sessionID := r.Header.Get(types.HeaderSessionID)
	if sessionID == "" {
		transporterrors.InvalidParams.WriteHTTP(w, nil)
		return
	}
	if !t.analytics.Delete(sessionID) {
		transporterrors.SessionNotFound.WriteHTTP(w, nil)
		return
	}
	t.metrics.RecordSessionDeleted()
	w.WriteHeader(http.StatusOK)
}

const welcomePage = `<!DOCTYPE html>
<html>
<head><title>hubgate</title></head>
<body>
<h1>hubgate</h1>
<p>This is an MCP endpoint. Point your MCP client at POST /mcp.</p>
</body>
</html>
`
