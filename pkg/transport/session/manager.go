// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/stacklok/hubgate/pkg/logger"
)

// EvictReason says why the manager removed a session.
type EvictReason string

// Eviction reasons passed to the OnEvict callback.
const (
	EvictExplicit EvictReason = "explicit"
	EvictStale    EvictReason = "stale"
	EvictShutdown EvictReason = "shutdown"
)

// Manager owns the session table for one transport. Lookup and mutation
// are safe for concurrent use; the stale sweep runs on its own goroutine
// between Start and Stop.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	staleTimeout  time.Duration
	checkInterval time.Duration

	// OnEvict, when set, runs after a session leaves the table, outside
	// the manager lock. The transport uses it for teardown and metrics.
	OnEvict func(s *Session, reason EvictReason)

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewManager creates a Manager. Start must be called for stale eviction.
func NewManager(staleTimeout, checkInterval time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		staleTimeout:  staleTimeout,
		checkInterval: checkInterval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the stale sweep goroutine.
func (m *Manager) Start() {
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sweeper and evicts every remaining session with the
// shutdown reason.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	<-m.done

	m.mu.Lock()
	remaining := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		remaining = append(remaining, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range remaining {
		s.Disconnect()
		m.notifyEvict(s, EvictShutdown)
	}
}

// Add inserts a session.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session explicitly. Returns false for unknown ids.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Disconnect()
	m.notifyEvict(s, EvictExplicit)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot returns metadata for every live session.
func (m *Manager) Snapshot() []Metadata {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Metadata, len(sessions))
	for i, s := range sessions {
		out[i] = s.Metadata()
	}
	return out
}

// Each runs fn over every live session, outside the manager lock.
func (m *Manager) Each(fn func(s *Session)) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}

// sweep evicts sessions idle past the stale timeout.
func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.staleTimeout)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastActivity().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		logger.Infow("evicting stale session", "session", s.ID(), "lastActivity", s.LastActivity())
		s.Disconnect()
		m.notifyEvict(s, EvictStale)
	}
}

func (m *Manager) notifyEvict(s *Session, reason EvictReason) {
	if m.OnEvict != nil {
		m.OnEvict(s, reason)
	}
}
