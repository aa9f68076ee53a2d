// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transport holds the pieces shared by the concrete transports:
// raw message inspection and the method vocabulary that drives routing
// decisions before a full MCP server is engaged.
package transport

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
)

// JSON-RPC methods with transport-level meaning.
const (
	MethodInitialize  = "initialize"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPromptsList = "prompts/list"
	MethodPromptsGet  = "prompts/get"
	MethodPing        = "ping"
)

// resourceMethodPrefix covers resources/list, resources/read and
// resources/templates/list.
const resourceMethodPrefix = "resources/"

// Peeked is what transports learn from a raw body without decoding the
// full message: enough to route, echo the id on errors, and decide the
// stub fast-path.
type Peeked struct {
	// Valid is false when the body is not a JSON-RPC 2.0 object.
	Valid bool

	// IsBatch is true for JSON arrays. Batches are not supported.
	IsBatch bool

	// IsResponse is true when the message carries a result or error
	// member, i.e. it is a client-to-server response (ping replies).
	IsResponse bool

	// Method is the request method, empty for responses.
	Method string

	// ID is the request id in its wire type, nil for notifications.
	ID any
}

// Peek inspects a raw JSON-RPC body.
func Peek(body []byte) Peeked {
	if !gjson.ValidBytes(body) {
		return Peeked{}
	}
	parsed := gjson.ParseBytes(body)
	if parsed.IsArray() {
		return Peeked{Valid: true, IsBatch: true}
	}
	if !parsed.IsObject() {
		return Peeked{}
	}

	p := Peeked{Valid: true}
	if id := parsed.Get("id"); id.Exists() {
		p.ID = id.Value()
	}
	p.Method = parsed.Get("method").String()
	if p.Method == "" && (parsed.Get("result").Exists() || parsed.Get("error").Exists()) {
		p.IsResponse = true
	}
	return p
}

// ToolCallName returns the target tool of a tools/call body, or empty.
func ToolCallName(body []byte) string {
	return gjson.GetBytes(body, "params.name").String()
}

// ClientName returns the client name of an initialize body, or empty.
func ClientName(body []byte) string {
	return gjson.GetBytes(body, "params.clientInfo.name").String()
}

// IsErrorResponse reports whether the SDK answered with a JSON-RPC error.
func IsErrorResponse(response mcp.JSONRPCMessage) bool {
	switch response.(type) {
	case mcp.JSONRPCError, *mcp.JSONRPCError:
		return true
	default:
		return false
	}
}

// IsCoreMethod reports whether the method needs a fully assembled tool
// surface. Everything else can be answered by a stub server that only does
// protocol bookkeeping.
func IsCoreMethod(method, clientName string) bool {
	switch method {
	case MethodInitialize, MethodToolsList, MethodToolsCall, MethodPromptsList, MethodPromptsGet:
		return true
	}
	// Some clients probe resources during setup and treat errors as fatal.
	if clientName == "claude-ai" && len(method) > len(resourceMethodPrefix) &&
		method[:len(resourceMethodPrefix)] == resourceMethodPrefix {
		return true
	}
	return false
}
