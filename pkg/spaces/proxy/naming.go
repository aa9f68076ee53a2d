// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package proxy turns discovered spaces into registrable MCP tools and
// mediates tool calls to the spaces' streaming endpoints.
package proxy

import (
	"strconv"
	"strings"
)

// maxToolNameLen is the longest outward tool name some MCP clients accept.
const maxToolNameLen = 49

// truncationHead is how much of the sanitized name survives at the front
// when middle truncation is needed.
const truncationHead = 20

// ToolName synthesizes the outward name for a space tool.
//
// The name is "gr" (public) or "grp" (private), the 1-based space index,
// an underscore, then the sanitized upstream tool name. Names over the cap
// are middle-truncated, with the 1-based tool index prefixed so truncated
// siblings within one space cannot collide.
func ToolName(private bool, spaceIndex, toolIndex int, upstreamName string) string {
	base := namePrefix(private) + strconv.Itoa(spaceIndex) + "_"
	name := sanitizeToolName(upstreamName)

	if len(base)+len(name) <= maxToolNameLen {
		return base + name
	}
	return indexedName(base, toolIndex, name)
}

// Namer issues outward names for one server build. Sanitization can map
// distinct upstream names to the same string ("foo-bar" and "foo.bar"
// both become "foo_bar"); the namer catches the repeat and falls back to
// the tool-index form so sibling tools never shadow each other.
type Namer struct {
	issued map[string]struct{}
}

// NewNamer creates an empty Namer.
func NewNamer() *Namer {
	return &Namer{issued: make(map[string]struct{})}
}

// Name returns a name not issued before by this Namer.
func (n *Namer) Name(private bool, spaceIndex, toolIndex int, upstreamName string) string {
	name := ToolName(private, spaceIndex, toolIndex, upstreamName)
	if _, taken := n.issued[name]; taken {
		base := namePrefix(private) + strconv.Itoa(spaceIndex) + "_"
		name = indexedName(base, toolIndex, sanitizeToolName(upstreamName))
	}
	n.issued[name] = struct{}{}
	return name
}

func namePrefix(private bool) string {
	if private {
		return "grp"
	}
	return "gr"
}

// indexedName builds base + toolIndex + "_" + name, middle-truncating the
// name part when the whole would exceed the cap.
func indexedName(base string, toolIndex int, name string) string {
	idx := strconv.Itoa(toolIndex) + "_"
	if len(base)+len(idx)+len(name) <= maxToolNameLen {
		return base + idx + name
	}

	head := name
	if len(head) > truncationHead {
		head = head[:truncationHead]
	}
	tailLen := maxToolNameLen - len(base) - len(idx) - len(head) - 1
	if tailLen < 1 {
		tailLen = 1
	}
	tail := name[len(name)-tailLen:]
	return base + idx + head + "_" + tail
}

// IsProxiedName reports whether an outward tool name was synthesized by
// ToolName, i.e. targets a space rather than a built-in tool.
func IsProxiedName(name string) bool {
	rest, ok := strings.CutPrefix(name, "gr")
	if !ok {
		return false
	}
	rest = strings.TrimPrefix(rest, "p")
	return len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9'
}

// sanitizeToolName lowercases the upstream name and collapses characters
// MCP clients reject into underscores.
func sanitizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-', r == ' ', r == '.':
			b.WriteByte('_')
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
