// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package streamable

import (
	"github.com/tidwall/gjson"

	"github.com/stacklok/hubgate/pkg/transport/session"
)

// clientInfoFromBody extracts the client identity from an initialize body.
func clientInfoFromBody(body []byte) *session.ClientInfo {
	info := gjson.GetBytes(body, "params.clientInfo")
	if !info.Exists() {
		return nil
	}
	return &session.ClientInfo{
		Name:    info.Get("name").String(),
		Version: info.Get("version").String(),
	}
}

// capabilitiesFromBody extracts the client capabilities from an initialize
// body, kept as-is for the management surface.
func capabilitiesFromBody(body []byte) any {
	caps := gjson.GetBytes(body, "params.capabilities")
	if !caps.Exists() {
		return nil
	}
	return caps.Value()
}
