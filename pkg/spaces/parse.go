// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package spaces

import (
	"strings"

	"github.com/stacklok/hubgate/pkg/logger"
)

// DisableSentinel is the literal gradio-header value that disables all
// gradio endpoints, including those supplied by user settings.
const DisableSentinel = "none"

// ParseID parses a single owner/name token. The second return value is
// false when the token is not a well-formed space identifier.
func ParseID(raw string) (ID, bool) {
	trimmed := strings.TrimSpace(raw)
	owner, name, found := strings.Cut(trimmed, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return ID{}, false
	}
	return ID{Owner: owner, Name: name}, true
}

// ParseList parses a comma-separated list of space identifiers. The "none"
// sentinel is filtered out; malformed entries are logged and skipped so
// that one bad token never hides the valid ones.
func ParseList(raw string) []ID {
	var ids []ID
	for _, entry := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || strings.EqualFold(trimmed, DisableSentinel) {
			continue
		}
		id, ok := ParseID(trimmed)
		if !ok {
			logger.Warnf("Skipping invalid space identifier %q", trimmed)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Disabled reports whether the raw gradio header value is the disable
// sentinel, meaning no gradio endpoints at all.
func Disabled(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), DisableSentinel)
}
