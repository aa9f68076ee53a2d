// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"

	"github.com/stacklok/hubgate/pkg/auth"
)

// callerToken returns the caller's bearer token from the request context.
func callerToken(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		return identity.Token
	}
	return ""
}
