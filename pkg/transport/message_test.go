// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestPeek(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want Peeked
	}{
		{
			name: "request with numeric id",
			body: `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			want: Peeked{Valid: true, Method: "tools/list", ID: float64(1)},
		},
		{
			name: "request with string id",
			body: `{"jsonrpc":"2.0","id":"abc","method":"initialize","params":{}}`,
			want: Peeked{Valid: true, Method: "initialize", ID: "abc"},
		},
		{
			name: "notification has nil id",
			body: `{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			want: Peeked{Valid: true, Method: "notifications/initialized"},
		},
		{
			name: "response with result",
			body: `{"jsonrpc":"2.0","id":"ping_1","result":{}}`,
			want: Peeked{Valid: true, IsResponse: true, ID: "ping_1"},
		},
		{
			name: "response with error",
			body: `{"jsonrpc":"2.0","id":7,"error":{"code":-32000,"message":"x"}}`,
			want: Peeked{Valid: true, IsResponse: true, ID: float64(7)},
		},
		{
			name: "batch",
			body: `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`,
			want: Peeked{Valid: true, IsBatch: true},
		},
		{
			name: "invalid json",
			body: `{"jsonrpc":`,
			want: Peeked{},
		},
		{
			name: "bare scalar",
			body: `42`,
			want: Peeked{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Peek([]byte(tt.body)))
		})
	}
}

func TestToolCallName(t *testing.T) {
	t.Parallel()

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"gr1_predict","arguments":{}}}`
	assert.Equal(t, "gr1_predict", ToolCallName([]byte(body)))
	assert.Empty(t, ToolCallName([]byte(`{"method":"tools/list"}`)))
}

func TestClientName(t *testing.T) {
	t.Parallel()

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"claude-ai","version":"1.0"}}}`
	assert.Equal(t, "claude-ai", ClientName([]byte(body)))
	assert.Empty(t, ClientName([]byte(`{"method":"initialize","params":{}}`)))
}

func TestIsCoreMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		clientName string
		want       bool
	}{
		{name: "initialize", method: "initialize", want: true},
		{name: "tools list", method: "tools/list", want: true},
		{name: "tools call", method: "tools/call", want: true},
		{name: "prompts list", method: "prompts/list", want: true},
		{name: "prompts get", method: "prompts/get", want: true},
		{name: "ping is not core", method: "ping", want: false},
		{name: "resources not core by default", method: "resources/list", want: false},
		{name: "resources core for claude-ai", method: "resources/list", clientName: "claude-ai", want: true},
		{name: "resource templates core for claude-ai", method: "resources/templates/list", clientName: "claude-ai", want: true},
		{name: "other methods not core", method: "logging/setLevel", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsCoreMethod(tt.method, tt.clientName))
		})
	}
}

func TestIsErrorResponse(t *testing.T) {
	t.Parallel()

	assert.False(t, IsErrorResponse(nil))
	assert.False(t, IsErrorResponse(mcp.JSONRPCResponse{}))
	assert.True(t, IsErrorResponse(mcp.JSONRPCError{}))
	assert.True(t, IsErrorResponse(&mcp.JSONRPCError{}))
}
