// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	s := New("s1", true, &ClientInfo{Name: "claude-ai", Version: "1.0"}, nil, "10.0.0.1")
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, "claude-ai", s.ClientName())
	assert.True(t, s.IsAuthenticated())

	before := s.LastActivity()
	time.Sleep(time.Millisecond)
	s.Touch()
	assert.True(t, s.LastActivity().After(before))

	meta := s.Metadata()
	assert.Equal(t, "s1", meta.ID)
	assert.Equal(t, int64(1), meta.RequestCount)
	assert.Equal(t, "10.0.0.1", meta.IPAddress)
}

func TestSessionPingStateMachine(t *testing.T) {
	t.Parallel()

	s := New("s1", false, nil, nil, "")

	require.True(t, s.BeginPing())
	assert.False(t, s.BeginPing(), "only one ping may be in flight")

	// One failure at threshold 2 keeps the session connected.
	assert.Equal(t, StateConnected, s.EndPing(false, 2))

	// The second consecutive failure crosses the threshold.
	require.True(t, s.BeginPing())
	assert.Equal(t, StateDistressed, s.EndPing(false, 2))

	// A success recovers the session and resets the failure count.
	require.True(t, s.BeginPing())
	assert.Equal(t, StateConnected, s.EndPing(true, 2))
	assert.Zero(t, s.Metadata().PingFailures)
}

func TestSessionDisconnectIsTerminal(t *testing.T) {
	t.Parallel()

	s := New("s1", false, nil, nil, "")
	s.Disconnect()
	assert.Equal(t, StateDisconnected, s.State())
	assert.False(t, s.BeginPing())
}

func TestManagerAddGetDelete(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Minute, time.Minute)
	var evicted []EvictReason
	m.OnEvict = func(_ *Session, reason EvictReason) {
		evicted = append(evicted, reason)
	}

	s := New("s1", false, nil, nil, "")
	m.Add(s)
	assert.Equal(t, 1, m.Count())

	got, ok := m.Get("s1")
	require.True(t, ok)
	assert.Same(t, s, got)

	require.True(t, m.Delete("s1"))
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, []EvictReason{EvictExplicit}, evicted)
	assert.False(t, m.Delete("s1"))
	assert.Zero(t, m.Count())
}

func TestManagerSweepEvictsStaleSessions(t *testing.T) {
	t.Parallel()

	m := NewManager(50*time.Millisecond, 10*time.Millisecond)
	evictedCh := make(chan EvictReason, 1)
	m.OnEvict = func(_ *Session, reason EvictReason) {
		evictedCh <- reason
	}

	m.Add(New("stale", false, nil, nil, ""))
	m.Start()
	defer m.Stop()

	select {
	case reason := <-evictedCh:
		assert.Equal(t, EvictStale, reason)
	case <-time.After(time.Second):
		t.Fatal("stale session was not evicted")
	}
	assert.Zero(t, m.Count())
}

func TestManagerStopEvictsWithShutdownReason(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Hour, time.Hour)
	var evicted []EvictReason
	m.OnEvict = func(_ *Session, reason EvictReason) {
		evicted = append(evicted, reason)
	}

	m.Add(New("s1", false, nil, nil, ""))
	m.Start()
	m.Stop()

	assert.Equal(t, []EvictReason{EvictShutdown}, evicted)
	assert.Zero(t, m.Count())
}

func TestManagerSnapshot(t *testing.T) {
	t.Parallel()

	m := NewManager(time.Minute, time.Minute)
	m.Add(New("s1", false, nil, nil, ""))
	m.Add(New("s2", true, nil, nil, ""))

	snap := m.Snapshot()
	assert.Len(t, snap, 2)
}
