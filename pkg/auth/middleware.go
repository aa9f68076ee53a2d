// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"net/http"
	"strings"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/transport/types"
)

// WellKnownProtectedResourcePath is the RFC 9728 metadata path advertised
// to rejected callers.
const WellKnownProtectedResourcePath = "/.well-known/oauth-protected-resource"

// BearerToken extracts the bearer token from a request, or "" when the
// request is anonymous.
func BearerToken(r *http.Request) string {
	header := r.Header.Get(types.HeaderAuthorization)
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware returns the authorization gate applied before per-request
// work on every transport. Outcomes:
//
//   - no token: continue anonymously, unless the force-auth header is
//     present, in which case reject with 401;
//   - valid token: attach the identity to the request context;
//   - token rejected by the hub: 401 with an OAuth protected-resource hint;
//   - validator failure: continue unauthenticated. A hub outage is not an
//     auth failure and must not lock callers out.
func Middleware(validator TokenValidator) types.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)

			if token == "" {
				if r.Header.Get(types.HeaderForceAuth) != "" {
					writeUnauthorized(w, r)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			identity, err := validator.Validate(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
			case isUnauthorized(err):
				writeUnauthorized(w, r)
			default:
				logger.Warnw("token validation failed, continuing unauthenticated", "error", err)
				next.ServeHTTP(w, r)
			}
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	metadataURL := "https://" + r.Host + WellKnownProtectedResourcePath
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		metadataURL = "http://" + r.Host + WellKnownProtectedResourcePath
	}
	w.Header().Set("WWW-Authenticate", `Bearer resource_metadata="`+metadataURL+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
