// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package streamable

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/gateway"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/transport/session"
)

// notifBuffer bounds queued server-to-client notifications per connection.
const notifBuffer = 64

// conn binds one session to its scoped MCP server, the serialization lock
// for message handling, and the attached SSE stream (if any).
//
// conn implements server.ClientSession so the SDK can route notifications
// (progress relay, tool list changes) through the SSE stream.
type conn struct {
	sess  *session.Session
	srv   *server.MCPServer
	build *gateway.Request

	// mu serializes message handling within the session. Across sessions,
	// handling is concurrent.
	mu sync.Mutex

	stream      atomic.Pointer[sseStream]
	notifCh     chan mcp.JSONRPCNotification
	initialized atomic.Bool

	pending sync.Map // ping id -> chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(sess *session.Session, srv *server.MCPServer, build *gateway.Request) *conn {
	c := &conn{
		sess:    sess,
		srv:     srv,
		build:   build,
		notifCh: make(chan mcp.JSONRPCNotification, notifBuffer),
		done:    make(chan struct{}),
	}
	go c.forwardNotifications()
	return c
}

// SessionID implements server.ClientSession.
func (c *conn) SessionID() string { return c.sess.ID() }

// NotificationChannel implements server.ClientSession.
func (c *conn) NotificationChannel() chan<- mcp.JSONRPCNotification { return c.notifCh }

// Initialize implements server.ClientSession.
func (c *conn) Initialize() { c.initialized.Store(true) }

// Initialized implements server.ClientSession.
func (c *conn) Initialized() bool { return c.initialized.Load() }

// forwardNotifications drains the SDK's notification channel into the
// attached SSE stream. Notifications arriving while no stream is attached
// are dropped; the protocol treats them as best-effort.
func (c *conn) forwardNotifications() {
	for {
		select {
		case <-c.done:
			return
		case n := <-c.notifCh:
			stream := c.stream.Load()
			if stream == nil {
				logger.Debugw("dropping notification, no stream attached",
					"session", c.sess.ID(), "method", n.Method)
				continue
			}
			data, err := json.Marshal(n)
			if err != nil {
				logger.Warnw("notification marshal failed", "error", err)
				continue
			}
			if err := stream.Send(data); err != nil {
				logger.Debugw("notification send failed", "session", c.sess.ID(), "error", err)
			}
		}
	}
}

// attachStream installs a new SSE stream, closing any previous one. The
// protocol allows one stream per session; a reconnect supersedes.
func (c *conn) attachStream(s *sseStream) {
	if prev := c.stream.Swap(s); prev != nil {
		prev.Close()
	}
}

// detachStream removes s if it is still the active stream.
func (c *conn) detachStream(s *sseStream) {
	c.stream.CompareAndSwap(s, nil)
	s.Close()
}

// resolvePing completes an outstanding ping by id. Returns false when no
// ping with that id is pending.
func (c *conn) resolvePing(id string) bool {
	v, ok := c.pending.LoadAndDelete(id)
	if !ok {
		return false
	}
	close(v.(chan struct{}))
	return true
}

// close tears the connection down on every path: session eviction,
// explicit delete, transport shutdown.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if stream := c.stream.Swap(nil); stream != nil {
			stream.Close()
		}
		c.pending.Range(func(key, _ any) bool {
			c.pending.Delete(key)
			return true
		})
	})
}

// sseStream is one GET response being written as server-sent events.
type sseStream struct {
	ch        chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newSSEStream() *sseStream {
	return &sseStream{
		ch:   make(chan []byte, notifBuffer),
		done: make(chan struct{}),
	}
}

// Send queues one event for the stream writer. Returns an error when the
// stream is closed or its buffer is full; a full buffer means the client
// stopped reading and will be caught by the heartbeat.
func (s *sseStream) Send(data []byte) error {
	select {
	case <-s.done:
		return errStreamClosed
	default:
	}
	select {
	case s.ch <- data:
		return nil
	case <-s.done:
		return errStreamClosed
	default:
		return errStreamBusy
	}
}

// Close ends the stream; the writer loop observes done and returns.
func (s *sseStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
