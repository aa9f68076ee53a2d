// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package streamable implements the stateful MCP transport: streaming HTTP
// with server-sent events, an in-memory session table, heartbeats,
// keep-alive pings and stale eviction.
package streamable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/tools"
	"github.com/stacklok/hubgate/pkg/transport"
	transporterrors "github.com/stacklok/hubgate/pkg/transport/errors"
	"github.com/stacklok/hubgate/pkg/transport/metrics"
	"github.com/stacklok/hubgate/pkg/transport/session"
	"github.com/stacklok/hubgate/pkg/transport/types"
)

var (
	errStreamClosed = errors.New("sse stream closed")
	errStreamBusy   = errors.New("sse stream buffer full")
)

// maxBodyBytes caps an inbound JSON-RPC body.
const maxBodyBytes = 10 << 20

// Transport is the stateful streaming-HTTP transport.
type Transport struct {
	settings *config.Settings
	factory  *gateway.Factory
	metrics  *metrics.Metrics
	manager  *session.Manager
	pinger   *pinger

	conns    sync.Map // session id -> *conn
	draining atomic.Bool
}

// New creates the transport. Initialize must be called before serving.
func New(settings *config.Settings, factory *gateway.Factory) *Transport {
	t := &Transport{
		settings: settings,
		factory:  factory,
		metrics:  metrics.New(),
		manager:  session.NewManager(settings.SSEStaleTimeout, settings.StaleCheckInterval),
	}
	t.manager.OnEvict = t.onEvict
	t.pinger = newPinger(t)
	return t
}

// Initialize starts the background sweep and pinger.
func (t *Transport) Initialize(_ context.Context) error {
	t.manager.Start()
	if t.settings.PingEnabled {
		t.pinger.Start()
	}
	return nil
}

// Cleanup closes every session and stops the timers.
func (t *Transport) Cleanup(_ context.Context) error {
	t.pinger.Stop()
	t.manager.Stop()
	return nil
}

// Shutdown marks the transport draining; new work is rejected with the
// server_shutting_down protocol error.
func (t *Transport) Shutdown(_ context.Context) error {
	t.draining.Store(true)
	return nil
}

// GetActiveConnectionCount returns the number of live sessions.
func (t *Transport) GetActiveConnectionCount() int {
	return t.manager.Count()
}

// GetSessions returns the session metadata snapshot.
func (t *Transport) GetSessions() []session.Metadata {
	return t.manager.Snapshot()
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
		"heartbeatIntervalMs":  t.settings.HeartbeatInterval.Milliseconds(),
		"staleCheckIntervalMs": t.settings.StaleCheckInterval.Milliseconds(),
		"staleTimeoutMs":       t.settings.SSEStaleTimeout.Milliseconds(),
		"pingEnabled":          t.settings.PingEnabled,
		"pingIntervalMs":       t.settings.PingInterval.Milliseconds(),
		"pingFailureThreshold": t.settings.PingFailureThreshold,
	}
}

// RegisterRoutes mounts the MCP endpoints on the router.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Post("/mcp", t.handlePost)
	r.Get("/mcp", t.handleGet)
	r.Delete("/mcp", t.handleDelete)
}

// onEvict runs after the manager removed a session, on any path.
func (t *Transport) onEvict(s *session.Session, reason session.EvictReason) {
	if v, ok := t.conns.LoadAndDelete(s.ID()); ok {
		v.(*conn).close()
	}
	t.metrics.RecordDisconnection(s.ClientName())
	switch reason {
	case session.EvictStale:
		t.metrics.RecordSessionCleaned()
	case session.EvictExplicit:
		t.metrics.RecordSessionDeleted()
	case session.EvictShutdown:
		// Counted neither as cleaned nor deleted.
	}
}

func (t *Transport) handlePost(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		t.writeProtocolError(w, transporterrors.ServerShuttingDown, nil)
		return
	}
	t.metrics.RecordIP(transport.RemoteIP(r))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		t.writeProtocolError(w, transporterrors.InternalError, nil)
		return
	}

	peeked := transport.Peek(body)
	switch {
	case !peeked.Valid:
		t.writeProtocolError(w, transporterrors.InvalidParams.WithMessage("Parse error: invalid JSON-RPC message"), nil)
		return
	case peeked.IsBatch:
		t.writeProtocolError(w, transporterrors.InvalidParams.WithMessage("Batch requests are not supported"), nil)
		return
	}

	sessionID := r.Header.Get(types.HeaderSessionID)

	// Ping replies arrive as client-to-server responses on POST.
	if peeked.IsResponse {
		t.handleClientResponse(w, sessionID, peeked)
		return
	}

	if peeked.Method == transport.MethodInitialize && sessionID == "" {
		t.handleInitialize(w, r, body, peeked)
		return
	}

	if sessionID == "" {
		t.metrics.RecordHTTPError(transporterrors.InvalidParams.HTTPStatus)
		t.writeProtocolError(w, transporterrors.InvalidParams, peeked.ID)
		return
	}

	v, ok := t.conns.Load(sessionID)
	if !ok {
		t.metrics.RecordSessionResumeFailed()
		t.metrics.RecordHTTPError(transporterrors.SessionNotFound.HTTPStatus)
		t.writeProtocolError(w, transporterrors.SessionNotFound, peeked.ID)
		return
	}
	c := v.(*conn)
	c.sess.Touch()

	t.dispatch(w, r, c, body, peeked)
}

// handleInitialize builds the scoped server for a new logical connection.
func (t *Transport) handleInitialize(w http.ResponseWriter, r *http.Request, body []byte, peeked transport.Peeked) {
	buildReq := gateway.FromHTTP(r)
	buildReq.ClientName = transport.ClientName(body)

	built, err := t.factory.Build(r.Context(), buildReq)
	if err != nil {
		logger.Errorw("server build failed", "error", err)
		t.metrics.RecordHTTPError(transporterrors.InternalError.HTTPStatus)
		t.writeProtocolError(w, transporterrors.InternalError, peeked.ID)
		return
	}

	authenticated := transport.IsAuthenticated(r.Context())
	sess := session.New(
		uuid.NewString(),
		authenticated,
		clientInfoFromBody(body),
		capabilitiesFromBody(body),
		transport.RemoteIP(r),
	)
	c := newConn(sess, built.Server, buildReq)

	t.manager.Add(sess)
	t.conns.Store(sess.ID(), c)
	t.metrics.RecordSessionCreated()
	t.metrics.RecordConnection(buildReq.ClientName, authenticated)

	logger.Infow("session created",
		"session", sess.ID(),
		"client", buildReq.ClientName,
		"authenticated", authenticated,
		"mode", built.Selection.Mode,
		"spaceTools", built.SpaceToolCount,
	)

	w.Header().Set(types.HeaderSessionID, sess.ID())
	t.dispatch(w, r, c, body, peeked)
}

// dispatch runs one message through the session's scoped server,
// serialized per session.
func (t *Transport) dispatch(w http.ResponseWriter, r *http.Request, c *conn, body []byte, peeked transport.Peeked) {
	ctx := r.Context()
	if c.build.JobTimeoutSet {
		ctx = tools.WithJobTimeout(ctx, c.build.JobTimeout)
	}
	if perRequest := gateway.FromHTTP(r); perRequest.JobTimeoutSet {
		ctx = tools.WithJobTimeout(ctx, perRequest.JobTimeout)
	}
	ctx = c.srv.WithContext(ctx, c)

	if peeked.Method == transport.MethodToolsCall {
		t.metrics.RecordToolCall(c.build.ClientName)
	}

	start := time.Now()
	c.mu.Lock()
	response := c.srv.HandleMessage(ctx, body)
	c.mu.Unlock()
	t.metrics.RecordRequest(peeked.Method, c.build.ClientName, time.Since(start), transport.IsErrorResponse(response))

	if response == nil {
		// Notification: nothing to send back.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	transport.WriteJSON(w, http.StatusOK, response)
}

// handleClientResponse resolves ping replies POSTed by the client.
func (t *Transport) handleClientResponse(w http.ResponseWriter, sessionID string, peeked transport.Peeked) {
	if sessionID == "" {
		t.writeProtocolError(w, transporterrors.InvalidParams, nil)
		return
	}
	v, ok := t.conns.Load(sessionID)
	if !ok {
		t.writeProtocolError(w, transporterrors.SessionNotFound, nil)
		return
	}
	c := v.(*conn)
	c.sess.Touch()
	if id, ok := peeked.ID.(string); ok {
		if c.resolvePing(id) {
			logger.Debugw("ping acknowledged", "session", sessionID, "id", id)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}

func (t *Transport) handleGet(w http.ResponseWriter, r *http.Request) {
	if t.draining.Load() {
		t.writeProtocolError(w, transporterrors.ServerShuttingDown, nil)
		return
	}

	sessionID := r.Header.Get(types.HeaderSessionID)
	if sessionID == "" {
		t.metrics.RecordHTTPError(transporterrors.InvalidParams.HTTPStatus)
		t.writeProtocolError(w, transporterrors.InvalidParams, nil)
		return
	}
	v, ok := t.conns.Load(sessionID)
	if !ok {
		t.metrics.RecordSessionResumeFailed()
		t.metrics.RecordHTTPError(transporterrors.SessionNotFound.HTTPStatus)
		t.writeProtocolError(w, transporterrors.SessionNotFound, nil)
		return
	}
	c := v.(*conn)

	flusher, ok := w.(http.Flusher)
	if !ok {
		t.writeProtocolError(w, transporterrors.InternalError.WithMessage("streaming unsupported"), nil)
		return
	}

	// Observed for diagnostics only; there is no event replay.
	if lastEventID := r.Header.Get(types.HeaderLastEventID); lastEventID != "" {
		logger.Debugw("sse reconnect", "session", sessionID, "lastEventId", lastEventID)
	}

	stream := newSSEStream()
	c.attachStream(stream)
	defer c.detachStream(stream)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	c.sess.Touch()
	heartbeat := time.NewTicker(t.settings.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-stream.done:
			return
		case data := <-stream.ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				t.streamDead(c, err)
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			// A failed comment write is how a dead stream is detected.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				t.streamDead(c, err)
				return
			}
			flusher.Flush()
		}
	}
}

// streamDead removes a session whose response stream failed to accept a
// write.
func (t *Transport) streamDead(c *conn, err error) {
	logger.Infow("response stream dead, removing session", "session", c.sess.ID(), "error", err)
	t.manager.Delete(c.sess.ID())
}

func (t *Transport) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(types.HeaderSessionID)
	if sessionID == "" {
		t.metrics.RecordHTTPError(transporterrors.InvalidParams.HTTPStatus)
		t.writeProtocolError(w, transporterrors.InvalidParams, nil)
		return
	}
	if !t.manager.Delete(sessionID) {
		t.metrics.RecordHTTPError(transporterrors.SessionNotFound.HTTPStatus)
		t.writeProtocolError(w, transporterrors.SessionNotFound, nil)
		return
	}
	logger.Infow("session deleted", "session", sessionID)
	w.WriteHeader(http.StatusOK)
}

func (t *Transport) writeProtocolError(w http.ResponseWriter, perr *transporterrors.ProtocolError, id any) {
	perr.WriteHTTP(w, id)
}

