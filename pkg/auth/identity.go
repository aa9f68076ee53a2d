// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package auth provides token validation and the authorization gate applied
// by every transport before per-request work.
package auth

import (
	"context"
	"errors"
)

// Identity describes an authenticated hub caller.
type Identity struct {
	// Username is the hub account name.
	Username string

	// Name is the display name, when the hub reports one.
	Name string

	// Token is the validated bearer token, kept for forwarding to private
	// spaces and downstream hub calls.
	Token string
}

// ErrUnauthorized is returned by validators when the hub explicitly
// rejects a token. Network or hub failures are returned as ordinary errors
// and must not be conflated with an auth rejection.
var ErrUnauthorized = errors.New("unauthorized")

// TokenValidator validates a bearer token against the hub.
//
// The hub is modeled as an opaque validate(token) -> identity|Unauthorized
// collaborator; hubgate never inspects token contents itself.
type TokenValidator interface {
	// Validate returns the caller's identity for a valid token,
	// ErrUnauthorized for a rejected one, and any other error for
	// validator failures (timeouts, hub outages).
	Validate(ctx context.Context, token string) (*Identity, error)
}

// IdentityContextKey is the context key under which the authenticated
// identity is stored. An empty struct key prevents collisions.
type IdentityContextKey struct{}

// WithIdentity stores an Identity in the context. A nil identity returns
// the original context unchanged.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, IdentityContextKey{}, identity)
}

// IdentityFromContext retrieves the Identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey{}).(*Identity)
	return identity, ok
}
