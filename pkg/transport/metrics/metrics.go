// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics tracks per-process request, session and ping counters for
// the transports, with per-client and per-method aggregates and rolling
// request windows. One Metrics instance is exclusively owned by its
// transport; the JSON snapshot feeds the management surface and the
// Prometheus registry feeds /metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Window lengths for the rolling request counts.
const (
	windowShort  = 1 * time.Minute
	windowMedium = 60 * time.Minute
	windowLong   = 180 * time.Minute
)

// ClientStats aggregates activity for one client (by reported client name).
type ClientStats struct {
	FirstSeen         time.Time `json:"firstSeen"`
	LastSeen          time.Time `json:"lastSeen"`
	ActiveConnections int64     `json:"activeConnections"`
	TotalConnections  int64     `json:"totalConnections"`
	ToolCalls         int64     `json:"toolCalls"`
}

// MethodStats aggregates one JSON-RPC method across all clients.
type MethodStats struct {
	Count       int64            `json:"count"`
	Errors      int64            `json:"errors"`
	TotalTimeMs int64            `json:"-"`
	AvgMs       float64          `json:"avgMs"`
	ByClient    map[string]int64 `json:"byClient"`
}

// Snapshot is a point-in-time JSON view of the counters.
type Snapshot struct {
	Requests             int64                   `json:"requests"`
	AuthConnections      int64                   `json:"authenticatedConnections"`
	AnonConnections      int64                   `json:"anonymousConnections"`
	ClientErrors         int64                   `json:"clientErrors"`
	ServerErrors         int64                   `json:"serverErrors"`
	SessionsCreated      int64                   `json:"sessionsCreated"`
	SessionResumesFailed int64                   `json:"sessionResumesFailed"`
	SessionsDeleted      int64                   `json:"sessionsDeleted"`
	SessionsCleaned      int64                   `json:"sessionsCleaned"`
	PingsSent            int64                   `json:"pingsSent"`
	PingsOK              int64                   `json:"pingsOk"`
	PingsFailed          int64                   `json:"pingsFailed"`
	UniqueIPs            int                     `json:"uniqueIps"`
	Requests1m           int64                   `json:"requestsLast1m"`
	Requests60m          int64                   `json:"requestsLast60m"`
	Requests180m         int64                   `json:"requestsLast180m"`
	Clients              map[string]ClientStats  `json:"clients"`
	Methods              map[string]*MethodStats `json:"methods"`
}

// Metrics is the concurrent counter state for one transport.
type Metrics struct {
	mu sync.Mutex

	requests             int64
	authConnections      int64
	anonConnections      int64
	clientErrors         int64
	serverErrors         int64
	sessionsCreated      int64
	sessionResumesFailed int64
	sessionsDeleted      int64
	sessionsCleaned      int64
	pingsSent            int64
	pingsOK              int64
	pingsFailed          int64

	clients map[string]*ClientStats
	methods map[string]*MethodStats
	ips     map[string]struct{}

	// buckets holds per-minute request counts for the rolling windows,
	// pruned past the longest window on every write.
	buckets map[int64]int64

	now func() time.Time

	registry       *prometheus.Registry
	promRequests   *prometheus.CounterVec
	promErrors     *prometheus.CounterVec
	promSessions   *prometheus.CounterVec
	promPings      *prometheus.CounterVec
	promLatency    *prometheus.HistogramVec
}

// New creates a Metrics with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		clients:  make(map[string]*ClientStats),
		methods:  make(map[string]*MethodStats),
		ips:      make(map[string]struct{}),
		buckets:  make(map[int64]int64),
		now:      time.Now,
		registry: prometheus.NewRegistry(),
	}

	m.promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubgate",
		Name:      "requests_total",
		Help:      "JSON-RPC requests handled, by method.",
	}, []string{"method"})
	m.promErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubgate",
		Name:      "request_errors_total",
		Help:      "Requests answered with an error, by class.",
	}, []string{"class"})
	m.promSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubgate",
		Name:      "sessions_total",
		Help:      "Session lifecycle events, by event.",
	}, []string{"event"})
	m.promPings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hubgate",
		Name:      "pings_total",
		Help:      "Keep-alive pings, by outcome.",
	}, []string{"outcome"})
	m.promLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hubgate",
		Name:      "request_duration_seconds",
		Help:      "Request handling latency, by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	m.registry.MustRegister(m.promRequests, m.promErrors, m.promSessions, m.promPings, m.promLatency)
	return m
}

// SetClock replaces the time source. Tests only.
func (m *Metrics) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Registry exposes the Prometheus registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest counts one handled JSON-RPC request.
func (m *Metrics) RecordRequest(method, clientName string, duration time.Duration, isError bool) {
	m.promRequests.WithLabelValues(method).Inc()
	m.promLatency.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	minute := m.now().Unix() / 60
	m.buckets[minute]++
	m.pruneBucketsLocked(minute)

	ms, ok := m.methods[method]
	if !ok {
		ms = &MethodStats{ByClient: make(map[string]int64)}
		m.methods[method] = ms
	}
	ms.Count++
	ms.TotalTimeMs += duration.Milliseconds()
	if isError {
		ms.Errors++
	}
	if clientName != "" {
		ms.ByClient[clientName]++
	}

	if clientName != "" {
		m.touchClientLocked(clientName)
	}
}

// RecordConnection counts a new logical connection.
func (m *Metrics) RecordConnection(clientName string, authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if authenticated {
		m.authConnections++
	} else {
		m.anonConnections++
	}
	if clientName != "" {
		cs := m.touchClientLocked(clientName)
		cs.ActiveConnections++
		cs.TotalConnections++
	}
}

// RecordDisconnection balances RecordConnection.
func (m *Metrics) RecordDisconnection(clientName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cs, ok := m.clients[clientName]; ok && cs.ActiveConnections > 0 {
		cs.ActiveConnections--
	}
}

// RecordToolCall counts one tools/call for a client.
func (m *Metrics) RecordToolCall(clientName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if clientName != "" {
		m.touchClientLocked(clientName).ToolCalls++
	}
}

// RecordHTTPError counts an HTTP-level error response.
func (m *Metrics) RecordHTTPError(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case status >= 500:
		m.serverErrors++
		m.promErrors.WithLabelValues("5xx").Inc()
	case status >= 400:
		m.clientErrors++
		m.promErrors.WithLabelValues("4xx").Inc()
	}
}

// Session lifecycle events.
func (m *Metrics) RecordSessionCreated() { m.sessionEvent("created", &m.sessionsCreated) }

// RecordSessionResumeFailed counts a request naming an unknown session.
func (m *Metrics) RecordSessionResumeFailed() {
	m.sessionEvent("resume_failed", &m.sessionResumesFailed)
}

// RecordSessionDeleted counts an explicit DELETE.
func (m *Metrics) RecordSessionDeleted() { m.sessionEvent("deleted", &m.sessionsDeleted) }

// RecordSessionCleaned counts a stale-sweep eviction.
func (m *Metrics) RecordSessionCleaned() { m.sessionEvent("cleaned", &m.sessionsCleaned) }

func (m *Metrics) sessionEvent(event string, counter *int64) {
	m.promSessions.WithLabelValues(event).Inc()
	m.mu.Lock()
	*counter++
	m.mu.Unlock()
}

// RecordPing counts one keep-alive ping attempt.
func (m *Metrics) RecordPing(ok bool) {
	m.mu.Lock()
	m.pingsSent++
	if ok {
		m.pingsOK++
	} else {
		m.pingsFailed++
	}
	m.mu.Unlock()

	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.promPings.WithLabelValues(outcome).Inc()
}

// RecordIP notes a caller address for the unique-IP count.
func (m *Metrics) RecordIP(ip string) {
	if ip == "" {
		return
	}
	m.mu.Lock()
	m.ips[ip] = struct{}{}
	m.mu.Unlock()
}

// Snapshot returns a copy of all counters for the management surface.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	snap := Snapshot{
		Requests:             m.requests,
		AuthConnections:      m.authConnections,
		AnonConnections:      m.anonConnections,
		ClientErrors:         m.clientErrors,
		ServerErrors:         m.serverErrors,
		SessionsCreated:      m.sessionsCreated,
		SessionResumesFailed: m.sessionResumesFailed,
		SessionsDeleted:      m.sessionsDeleted,
		SessionsCleaned:      m.sessionsCleaned,
		PingsSent:            m.pingsSent,
		PingsOK:              m.pingsOK,
		PingsFailed:          m.pingsFailed,
		UniqueIPs:            len(m.ips),
		Requests1m:           m.windowCountLocked(now, windowShort),
		Requests60m:          m.windowCountLocked(now, windowMedium),
		Requests180m:         m.windowCountLocked(now, windowLong),
		Clients:              make(map[string]ClientStats, len(m.clients)),
		Methods:              make(map[string]*MethodStats, len(m.methods)),
	}
	for name, cs := range m.clients {
		snap.Clients[name] = *cs
	}
	for method, ms := range m.methods {
		copied := &MethodStats{
			Count:       ms.Count,
			Errors:      ms.Errors,
			TotalTimeMs: ms.TotalTimeMs,
			ByClient:    make(map[string]int64, len(ms.ByClient)),
		}
		if ms.Count > 0 {
			copied.AvgMs = float64(ms.TotalTimeMs) / float64(ms.Count)
		}
		for c, n := range ms.ByClient {
			copied.ByClient[c] = n
		}
		snap.Methods[method] = copied
	}
	return snap
}

func (m *Metrics) touchClientLocked(clientName string) *ClientStats {
	cs, ok := m.clients[clientName]
	if !ok {
		cs = &ClientStats{FirstSeen: m.now()}
		m.clients[clientName] = cs
	}
	cs.LastSeen = m.now()
	return cs
}

func (m *Metrics) windowCountLocked(now time.Time, window time.Duration) int64 {
	oldest := now.Add(-window).Unix() / 60
	var total int64
	for minute, count := range m.buckets {
		if minute >= oldest {
			total += count
		}
	}
	return total
}

func (m *Metrics) pruneBucketsLocked(current int64) {
	oldest := current - int64(windowLong/time.Minute)
	for minute := range m.buckets {
		if minute < oldest {
			delete(m.buckets, minute)
		}
	}
}
