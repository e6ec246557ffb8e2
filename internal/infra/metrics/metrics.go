// Package metrics provides Prometheus metrics for the progress engine:
// counters, gauges and histograms for claims, sessions, unlocks, points,
// remote calls and the unsynced outbox.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Streak Bonus ───────────────────────────────────────────────────────────

// BonusClaims tracks bonus claim outcomes (granted, already_claimed, not_eligible).
var BonusClaims = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "bonus_claims_total",
	Help:      "Streak bonus claims by outcome.",
}, []string{"outcome"})

// ─── Sessions ───────────────────────────────────────────────────────────────

// SessionsScored tracks scored sessions by type.
var SessionsScored = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "sessions_scored_total",
	Help:      "Completed focus sessions scored, by session type.",
}, []string{"type"})

// SessionPoints tracks the total points of each scored session.
var SessionPoints = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "focus",
	Name:      "session_points",
	Help:      "Points awarded per completed session.",
	Buckets:   []float64{50, 100, 150, 200, 300, 400, 600, 800, 1200},
})

// ─── Progress ───────────────────────────────────────────────────────────────

// Unlocks tracks item unlocks by kind and whether they were reward eligible.
var Unlocks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "unlocks_total",
	Help:      "Achievement and challenge unlocks.",
}, []string{"kind", "eligible"})

// PointsGranted tracks points granted by source.
var PointsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "points_granted_total",
	Help:      "Total points granted, by source.",
}, []string{"source"})

// ─── Remote Authority ───────────────────────────────────────────────────────

// RemoteCalls tracks remote authority calls by op and outcome
// (ok, unavailable, rejected).
var RemoteCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "remote_calls_total",
	Help:      "Remote authority calls by operation and outcome.",
}, []string{"op", "outcome"})

// RemoteLatency tracks remote authority round-trip time.
var RemoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "focus",
	Name:      "remote_latency_seconds",
	Help:      "Remote authority round-trip latency.",
	Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"op"})

// LocalFallbacks tracks operations answered locally because the remote
// was unreachable.
var LocalFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "local_fallbacks_total",
	Help:      "Operations computed locally after the remote was unreachable.",
}, []string{"op"})

// ─── Outbox ─────────────────────────────────────────────────────────────────

// OutboxDepth tracks queued unsynced operations.
var OutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "focus",
	Name:      "outbox_depth",
	Help:      "Unsynced operations waiting for replay.",
})

// OutboxReplays tracks replay results (delivered, dropped, deferred).
var OutboxReplays = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "focus",
	Name:      "outbox_replays_total",
	Help:      "Outbox replay attempts by result.",
}, []string{"result"})

// ReplayBackoff tracks users whose replay is paused by backoff.
var ReplayBackoff = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "focus",
	Name:      "replay_backoff_users",
	Help:      "Users whose outbox replay is waiting out a backoff delay.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "focus",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
