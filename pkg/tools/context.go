// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"time"
)

type jobTimeoutKey struct{}

// WithJobTimeout stores the caller's job-timeout override on the context.
// A zero duration means wait until the job completes.
func WithJobTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, jobTimeoutKey{}, d)
}

// JobTimeoutFromContext returns the job-timeout override, if any.
func JobTimeoutFromContext(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(jobTimeoutKey{}).(time.Duration)
	return d, ok
}
