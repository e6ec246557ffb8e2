// Package health runs periodic health checks with auto-recovery.
// Results are exposed at /health and mirrored to the health gauge.
package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/infra/metrics"
)

// DefaultInterval is how often the checks run.
const DefaultInterval = 60 * time.Second

// DefaultMaxOutbox is the outbox depth above which the outbox check fails.
const DefaultMaxOutbox = 500

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is the local store.
type Pinger interface {
	Ping() error
}

// RemotePinger is the remote authority client.
type RemotePinger interface {
	Ping(ctx context.Context) error
}

// OutboxCounter reports the unsynced queue depth.
type OutboxCounter interface {
	OutboxDepth() (int, error)
}

// Options selects the optional checks. A nil Remote or Outbox skips that
// check; Replay is the outbox check's recovery action.
type Options struct {
	Interval  time.Duration
	Remote    RemotePinger
	Outbox    OutboxCounter
	MaxOutbox int
	Replay    func(ctx context.Context) error
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker with the sqlite and data_dir checks plus
// whichever optional checks opts enables.
func NewChecker(db Pinger, dataDir string, opts Options) *Checker {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Checker{
		interval: interval,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "data_dir",
				CheckFn: func(ctx context.Context) error {
					return checkDataDir(dataDir)
				},
			},
		},
	}

	if opts.Remote != nil {
		c.checks = append(c.checks, Check{
			Name:    "remote",
			CheckFn: opts.Remote.Ping,
		})
	}
	if opts.Outbox != nil {
		limit := opts.MaxOutbox
		if limit <= 0 {
			limit = DefaultMaxOutbox
		}
		c.checks = append(c.checks, Check{
			Name: "outbox",
			CheckFn: func(ctx context.Context) error {
				n, err := opts.Outbox.OutboxDepth()
				if err != nil {
					return fmt.Errorf("read outbox depth: %w", err)
				}
				metrics.OutboxDepth.Set(float64(n))
				if n > limit {
					return fmt.Errorf("%d unsynced operations queued (limit %d)", n, limit)
				}
				return nil
			},
			RecoverFn: opts.Replay,
		})
	}
	return c
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			// Attempt recovery
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
		} else {
			s.Healthy = true
		}
		statuses[i] = s

		gauge := 0.0
		if s.Healthy {
			gauge = 1
		}
		metrics.HealthCheckStatus.WithLabelValues(s.Name).Set(gauge)
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// RunOnce runs every check now. Used by the CLI.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	c.runAll(ctx)
	return c.Statuses()
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkDataDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("check data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
