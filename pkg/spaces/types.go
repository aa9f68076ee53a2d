// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package spaces defines the domain types for hosted AI Spaces and the
// parsing of space identifiers.
//
// A space is the proxied unit of functionality: a hosted application named
// "owner/name" with a hub-reported subdomain. Only spaces built on the
// gradio SDK can be mediated by the proxy.
package spaces

import (
	"time"
)

// SDKGradio is the only SDK tag the proxy can mediate. Spaces reporting any
// other SDK are filtered out of discovery results.
const SDKGradio = "gradio"

// ID identifies a space as owner/name.
type ID struct {
	Owner string
	Name  string
}

// String returns the canonical owner/name form.
func (id ID) String() string {
	return id.Owner + "/" + id.Name
}

// Runtime is the optional runtime block reported by the hub.
type Runtime struct {
	Stage    string `json:"stage,omitempty"`
	Hardware string `json:"hardware,omitempty"`
}

// Metadata is the hub-reported description of a space.
//
// Invariant: metadata for private spaces is never cached; it is fetched
// fresh on every request so that authorization-sensitive state cannot go
// stale.
type Metadata struct {
	// Subdomain is the derived host under which the space serves traffic.
	Subdomain string

	// Emoji is the space's display emoji.
	Emoji string

	// Private reports whether the space requires authorization.
	Private bool

	// SDK is the hub-reported SDK tag ("gradio", "docker", ...).
	SDK string

	// Runtime is the optional runtime stage/hardware block.
	Runtime *Runtime

	// ETag is the opaque revalidation token returned by the hub.
	ETag string

	// FetchedAt is when this entry was created. TTL expiry is measured
	// from here, never from last access.
	FetchedAt time.Time
}

// ToolDescriptor describes a single tool exposed by a space, with its name,
// human description and a JSON-Schema-style input schema.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Schema is the ordered tool list fetched from a space's mcp/schema
// endpoint. The same privacy invariant as Metadata applies.
type Schema struct {
	Tools     []ToolDescriptor
	FetchedAt time.Time
}

// Space is one combined discovery record: identity plus the metadata and
// tools needed to register the space's tools on an MCP server.
type Space struct {
	ID        ID
	Private   bool
	SDK       string
	Subdomain string
	Emoji     string
	Runtime   *Runtime
	Tools     []ToolDescriptor
}

// Endpoint returns the base URL of the space's serving host.
func (s *Space) Endpoint() string {
	return "https://" + s.Subdomain + ".hf.space"
}

// SchemaURL returns the space's tool schema endpoint.
func (s *Space) SchemaURL() string {
	return s.Endpoint() + "/gradio_api/mcp/schema"
}

// SSEURL returns the space's streaming MCP endpoint used for tool calls.
func (s *Space) SSEURL() string {
	return s.Endpoint() + "/gradio_api/mcp/sse"
}
