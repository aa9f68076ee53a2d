// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package streamable

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/jsonrpc2"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/transport/session"
)

// pingReplyTimeout is how long a ping waits for its POSTed reply before
// counting as failed.
const pingReplyTimeout = 5 * time.Second

// pinger fires protocol-level pings at every session with an attached
// stream. Ping replies arrive as client responses on POST and are matched
// by id. In-flight pings are deduplicated per session.
type pinger struct {
	t *Transport

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newPinger(t *Transport) *pinger {
	return &pinger{
		t:      t,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (p *pinger) Start() {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.t.settings.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.pingAll()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func (p *pinger) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

func (p *pinger) pingAll() {
	p.t.conns.Range(func(_, v any) bool {
		c := v.(*conn)
		if c.stream.Load() == nil {
			// No stream means no path to the client; the stale sweep
			// governs these sessions.
			return true
		}
		if !c.sess.BeginPing() {
			return true
		}
		go p.pingOne(c)
		return true
	})
}

// pingOne sends one ping over the session's stream and waits for the
// POSTed reply.
func (p *pinger) pingOne(c *conn) {
	pingID := fmt.Sprintf("ping_%d", time.Now().UnixNano())

	call, err := jsonrpc2.NewCall(jsonrpc2.StringID(pingID), "ping", json.RawMessage(`{}`))
	if err != nil {
		p.finish(c, false)
		return
	}
	data, err := jsonrpc2.EncodeMessage(call)
	if err != nil {
		p.finish(c, false)
		return
	}

	replyCh := make(chan struct{})
	c.pending.Store(pingID, replyCh)

	stream := c.stream.Load()
	if stream == nil {
		c.pending.Delete(pingID)
		p.finish(c, false)
		return
	}
	if err := stream.Send(data); err != nil {
		c.pending.Delete(pingID)
		p.finish(c, false)
		return
	}

	timer := time.NewTimer(pingReplyTimeout)
	defer timer.Stop()
	select {
	case <-replyCh:
		p.finish(c, true)
	case <-timer.C:
		c.pending.Delete(pingID)
		p.finish(c, false)
	case <-c.done:
		c.pending.Delete(pingID)
	}
}

func (p *pinger) finish(c *conn, ok bool) {
	state := c.sess.EndPing(ok, p.t.settings.PingFailureThreshold)
	p.t.metrics.RecordPing(ok)
	if state == session.StateDistressed {
		logger.Warnw("session distressed after ping failure", "session", c.sess.ID())
	}
}
