// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/transport/types"
)

// Request carries the per-request facts the factory builds a server from.
// Transports fill it from headers (after query-parameter promotion) and
// from the initialize payload where available.
type Request struct {
	// Bouquet, Mix and Gradio are the raw x-mcp-* header values.
	Bouquet string
	Mix     string
	Gradio  string

	// NoImageContent strips image blocks from space results.
	NoImageContent bool

	// JobTimeout is the caller's job-timeout override. Zero with
	// JobTimeoutSet means wait until the job completes (the -1 form).
	JobTimeout    time.Duration
	JobTimeoutSet bool

	// ClientName is the client identity from initialize, when known.
	ClientName string

	// SkipGradio bypasses space discovery entirely. The stateless
	// transport sets it for requests that cannot touch space tools.
	SkipGradio bool
}

// FromHTTP extracts a Request from the recognised x-mcp-* headers.
// types.PromoteQueryParams must already have run.
func FromHTTP(r *http.Request) *Request {
	req := &Request{
		Bouquet:        r.Header.Get(types.HeaderBouquet),
		Mix:            r.Header.Get(types.HeaderMix),
		Gradio:         r.Header.Get(types.HeaderGradio),
		NoImageContent: r.Header.Get(types.HeaderNoImageContent) == "true",
	}

	if raw := r.Header.Get(types.HeaderJobTimeout); raw != "" {
		seconds, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			logger.Warnw("ignoring malformed job-timeout header", "value", raw)
		case seconds == -1:
			// Wait until the job completes.
			req.JobTimeout = 0
			req.JobTimeoutSet = true
		case seconds > 0:
			req.JobTimeout = time.Duration(seconds) * time.Second
			req.JobTimeoutSet = true
		default:
			logger.Warnw("ignoring non-positive job-timeout header", "value", raw)
		}
	}
	return req
}
