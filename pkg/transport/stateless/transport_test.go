// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package stateless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/spaces/discovery"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
	"github.com/stacklok/hubgate/pkg/tools"
	"github.com/stacklok/hubgate/pkg/transport/types"
)

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize",` +
	`"params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test-client","version":"1.0"},"capabilities":{}}}`

func newTestTransport(t *testing.T, tweak func(v *viper.Viper)) *Transport {
	t.Helper()

	v := viper.New()
	v.Set(config.KeyPingEnabled, false)
	if tweak != nil {
		tweak(v)
	}
	settings := config.FromViper(v)

	hubClient := hub.NewClient("http://127.0.0.1:1")
	d := discovery.New(hubClient, settings)
	inv := proxy.NewInvoker()
	registry := tools.NewRegistry(hub.NewAPI("http://127.0.0.1:1"), d, inv)
	factory := gateway.NewFactory(settings, registry, d, inv, hub.NewSettingsProvider(""), "test")

	tr := New(settings, factory, "test")
	require.NoError(t, tr.Initialize(context.Background()))
	t.Cleanup(func() { _ = tr.Cleanup(context.Background()) })
	return tr
}

func doPost(t *testing.T, tr *Transport, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	tr.RegisterRoutes(r)

	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	rec := doPost(t, tr, initializeBody, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "hubgate", gjson.Get(body, "result.serverInfo.name").String())
	assert.Empty(t, rec.Header().Get(types.HeaderSessionID), "no session header outside analytics mode")
}

func TestToolsListFallbackSurface(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	rec := doPost(t, tr, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	listed := gjson.Get(rec.Body.String(), "result.tools").Array()
	assert.Len(t, listed, len(tools.AllIDs()), "anonymous callers get the full built-in surface")
}

func TestMalformedBodies(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)

	rec := doPost(t, tr, `{"jsonrpc":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doPost(t, tr, `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Batch requests are not supported")
}

func TestClientResponsesAreAccepted(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	rec := doPost(t, tr, `{"jsonrpc":"2.0","id":"ping_1","result":{}}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestNotificationsAreAccepted(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	rec := doPost(t, tr, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorAnswersCountTowardMethodErrors(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	rec := doPost(t, tr, `{"jsonrpc":"2.0","id":5,"method":"bogus/method"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(-32601), gjson.Get(rec.Body.String(), "error.code").Int())

	ms := tr.GetMetrics().Methods["bogus/method"]
	require.NotNil(t, ms)
	assert.Equal(t, int64(1), ms.Errors)
}

func TestDrainingRejectsNewWork(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	require.NoError(t, tr.Shutdown(context.Background()))

	rec := doPost(t, tr, initializeBody, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, int64(-32000), gjson.Get(rec.Body.String(), "error.code").Int())
}

func TestWelcomePage(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	r := chi.NewRouter()
	tr.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MCP endpoint")
}

func TestStrictComplianceRejectsGet(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(v *viper.Viper) {
		v.Set(config.KeyStrictCompliance, true)
	})
	r := chi.NewRouter()
	tr.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int64(-32601), gjson.Get(rec.Body.String(), "error.code").Int())
}

func TestDeleteWithoutAnalyticsMode(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	r := chi.NewRouter()
	tr.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAnalyticsMode(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(v *viper.Viper) {
		v.Set(config.KeyAnalyticsMode, true)
	})

	rec := doPost(t, tr, initializeBody, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(types.HeaderSessionID)
	require.NotEmpty(t, sessionID)
	assert.Len(t, tr.GetSessions(), 1)

	// A follow-up request with the session id touches the session.
	rec = doPost(t, tr, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, map[string]string{
		types.HeaderSessionID: sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := tr.GetSessions()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(1), snap[0].RequestCount)

	// An unknown session id is counted but does not fail the request.
	rec = doPost(t, tr, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`, map[string]string{
		types.HeaderSessionID: "nope",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), tr.GetMetrics().SessionResumesFailed)

	// Explicit delete removes the analytics session.
	r := chi.NewRouter()
	tr.RegisterRoutes(r)
	req := httptest.NewRequest("DELETE", "/mcp", nil)
	req.Header.Set(types.HeaderSessionID, sessionID)
	del := httptest.NewRecorder()
	r.ServeHTTP(del, req)
	assert.Equal(t, http.StatusOK, del.Code)
	assert.Empty(t, tr.GetSessions())
}

func TestGetActiveConnectionCountSentinel(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, nil)
	assert.Equal(t, types.StatelessConnectionCount, tr.GetActiveConnectionCount())
}
