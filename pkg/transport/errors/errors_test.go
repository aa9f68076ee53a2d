// Package errors tests the shared JSON-RPC error vocabulary.
package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		perr       *ProtocolError
		wantCode   int
		wantStatus int
	}{
		{name: "invalid params", perr: InvalidParams, wantCode: -32602, wantStatus: http.StatusBadRequest},
		{name: "session not found", perr: SessionNotFound, wantCode: -32001, wantStatus: http.StatusNotFound},
		{name: "shutting down", perr: ServerShuttingDown, wantCode: -32000, wantStatus: http.StatusServiceUnavailable},
		{name: "method not allowed", perr: MethodNotAllowed, wantCode: -32601, wantStatus: http.StatusMethodNotAllowed},
		{name: "internal", perr: InternalError, wantCode: -32603, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantCode, tt.perr.Code)
			assert.Equal(t, tt.wantStatus, tt.perr.HTTPStatus)
		})
	}
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	var decoded struct {
		JSONRPC string `json:"jsonrpc"`
		ID      any    `json:"id"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	require.NoError(t, json.Unmarshal(SessionNotFound.Envelope("req-1"), &decoded))
	assert.Equal(t, "2.0", decoded.JSONRPC)
	assert.Equal(t, "req-1", decoded.ID)
	assert.Equal(t, CodeSessionNotFound, decoded.Error.Code)
	assert.Equal(t, "Session not found", decoded.Error.Message)

	require.NoError(t, json.Unmarshal(InternalError.Envelope(nil), &decoded))
	assert.Nil(t, decoded.ID)
}

func TestWriteHTTP(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ServerShuttingDown.WriteHTTP(rec, float64(3))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"code":-32000`)
}

func TestWithMessage(t *testing.T) {
	t.Parallel()

	custom := InvalidParams.WithMessage("Batch requests are not supported")
	assert.Equal(t, InvalidParams.Code, custom.Code)
	assert.Equal(t, InvalidParams.HTTPStatus, custom.HTTPStatus)
	assert.Equal(t, "Batch requests are not supported", custom.Message)
	assert.Equal(t, "Bad Request: Mcp-Session-Id header is required", InvalidParams.Message, "the shared instance is untouched")
}
