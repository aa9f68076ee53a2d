// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stdio implements the stdio transport: one scoped server bound to
// the process's standard streams, for callers that spawn the gateway as a
// subprocess.
package stdio

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/logger"
)

// Transport is the stdio transport. There is exactly one logical
// connection: the parent process.
type Transport struct {
	factory   *gateway.Factory
	validator auth.TokenValidator

	// token is the optional bearer token from the environment; stdio has
	// no request headers to carry one.
	token string

	// buildReq carries tool-selection options from the environment
	// (bouquet, gradio list), mirroring what HTTP callers pass as headers.
	buildReq *gateway.Request

	connected atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates the transport.
func New(factory *gateway.Factory, validator auth.TokenValidator, token string, buildReq *gateway.Request) *Transport {
	if buildReq == nil {
		buildReq = &gateway.Request{}
	}
	return &Transport{
		factory:   factory,
		validator: validator,
		token:     token,
		buildReq:  buildReq,
		done:      make(chan struct{}),
	}
}

// Initialize validates the environment token, builds the scoped server and
// starts serving the standard streams.
func (t *Transport) Initialize(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)

	if t.token != "" {
		identity, err := t.validator.Validate(ctx, t.token)
		switch {
		case err == nil:
			ctx = auth.WithIdentity(ctx, identity)
		case errors.Is(err, auth.ErrUnauthorized):
			return err
		default:
			// Network trouble is not an auth failure; continue anonymously.
			logger.Warnw("token validation unavailable, continuing unauthenticated", "error", err)
		}
	}

	built, err := t.factory.Build(ctx, t.buildReq)
	if err != nil {
		return err
	}

	stdioServer := server.NewStdioServer(built.Server)
	t.connected.Store(true)

	go func() {
		defer close(t.done)
		defer t.connected.Store(false)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil &&
			!errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
			logger.Errorw("stdio serving failed", "error", err)
		}
	}()
	return nil
}

// Cleanup stops serving and waits for the stream loop to exit.
func (t *Transport) Cleanup(_ context.Context) error {
	if t.cancel != nil {
		t.cancel()
		<-t.done
	}
	return nil
}

// Shutdown behaves like Cleanup: stdio has no new connections to refuse.
func (t *Transport) Shutdown(ctx context.Context) error {
	return t.Cleanup(ctx)
}

// GetActiveConnectionCount reports 1 while the streams are being served.
func (t *Transport) GetActiveConnectionCount() int {
	if t.connected.Load() {
		return 1
	}
	return 0
}

// Done is closed when the stream loop exits (parent closed stdin).
func (t *Transport) Done() <-chan struct{} {
	return t.done
}
