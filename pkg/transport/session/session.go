// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session tracks the logical connections of the stateful transport:
// per-session metadata, the connected/distressed/disconnected state
// machine, and a manager with background stale eviction.
package session

import (
	"sync"
	"time"
)

// State is a session's position in its lifecycle.
type State string

// Session states. Disconnected is terminal; a disconnected session is
// removed from the manager and never revived.
const (
	StateConnected    State = "connected"
	StateDistressed   State = "distressed"
	StateDisconnected State = "disconnected"
)

// ClientInfo is the client identity reported during initialize.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Metadata is the JSON view of one session for the management surface.
type Metadata struct {
	ID              string      `json:"id"`
	State           State       `json:"state"`
	ConnectedAt     time.Time   `json:"connectedAt"`
	LastActivity    time.Time   `json:"lastActivity"`
	RequestCount    int64       `json:"requestCount"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	ClientInfo      *ClientInfo `json:"clientInfo,omitempty"`
	Capabilities    any         `json:"capabilities,omitempty"`
	PingFailures    int         `json:"pingFailures"`
	LastPingAttempt time.Time   `json:"lastPingAttempt,omitzero"`
	IPAddress       string      `json:"ipAddress,omitempty"`
}

// Session is one tracked connection. All mutation goes through methods so
// the state machine stays consistent under concurrent pings and requests.
type Session struct {
	mu sync.Mutex

	id              string
	state           State
	connectedAt     time.Time
	lastActivity    time.Time
	requestCount    int64
	isAuthenticated bool
	clientInfo      *ClientInfo
	capabilities    any
	pingFailures    int
	lastPingAttempt time.Time
	pingInFlight    bool
	ipAddress       string
}

// New creates a connected session.
func New(id string, authenticated bool, clientInfo *ClientInfo, capabilities any, ip string) *Session {
	now := time.Now()
	return &Session{
		id:              id,
		state:           StateConnected,
		connectedAt:     now,
		lastActivity:    now,
		isAuthenticated: authenticated,
		clientInfo:      clientInfo,
		capabilities:    capabilities,
		ipAddress:       ip,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Touch refreshes lastActivity and counts one request.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.requestCount++
	s.mu.Unlock()
}

// LastActivity returns when the session last saw traffic or a ping success.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ClientName returns the reported client name, or empty.
func (s *Session) ClientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientInfo == nil {
		return ""
	}
	return s.clientInfo.Name
}

// IsAuthenticated reports whether the session initialized with a valid token.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAuthenticated
}

// BeginPing marks a ping in flight. Returns false when one is already
// outstanding, so concurrent ping ticks never stack up on one session.
func (s *Session) BeginPing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingInFlight || s.state == StateDisconnected {
		return false
	}
	s.pingInFlight = true
	s.lastPingAttempt = time.Now()
	return true
}

// EndPing records the outcome of an in-flight ping. Success returns the
// session to connected and refreshes activity; failures accumulate until
// the threshold flips the session to distressed.
func (s *Session) EndPing(ok bool, failureThreshold int) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingInFlight = false
	if s.state == StateDisconnected {
		return s.state
	}
	if ok {
		s.pingFailures = 0
		s.state = StateConnected
		s.lastActivity = time.Now()
		return s.state
	}
	s.pingFailures++
	if s.pingFailures >= failureThreshold {
		s.state = StateDistressed
	}
	return s.state
}

// Disconnect moves the session to its terminal state.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
}

// Metadata returns a copy of the session's observable state.
func (s *Session) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Metadata{
		ID:              s.id,
		State:           s.state,
		ConnectedAt:     s.connectedAt,
		LastActivity:    s.lastActivity,
		RequestCount:    s.requestCount,
		IsAuthenticated: s.isAuthenticated,
		ClientInfo:      s.clientInfo,
		Capabilities:    s.capabilities,
		PingFailures:    s.pingFailures,
		LastPingAttempt: s.lastPingAttempt,
		IPAddress:       s.ipAddress,
	}
}
