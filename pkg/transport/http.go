// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/logger"
)

// WriteJSON writes v as a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorw("response marshal failed", "error", err)
		return
	}
	_, _ = w.Write(data)
}

// RemoteIP returns the caller's address, honoring X-Forwarded-For.
func RemoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the client; the rest are proxies.
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IsAuthenticated reports whether the auth middleware attached an identity.
func IsAuthenticated(ctx context.Context) bool {
	identity, ok := auth.IdentityFromContext(ctx)
	return ok && identity != nil
}
