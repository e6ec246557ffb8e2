// Package scheduler paces outbox replay. A user whose replay pass could not
// reach the remote authority is retried with exponential backoff instead of
// on every tick.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// ─── Replay Retry Queue ─────────────────────────────────────────────────────

// RetryConfig configures the retry queue behavior.
type RetryConfig struct {
	BaseDelay time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay  time.Duration // Cap on backoff delay
}

// DefaultRetryConfig returns production retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay: 30 * time.Second,
		MaxDelay:  10 * time.Minute,
	}
}

// RetryEntry tracks a user's failed replay state.
type RetryEntry struct {
	UserID    string    `json:"user_id"`
	Attempt   int       `json:"attempt"`    // Consecutive failed passes
	NextRetry time.Time `json:"next_retry"` // Earliest time to replay again
	FailedAt  time.Time `json:"failed_at"`  // When the last pass failed
	Error     string    `json:"error,omitempty"`
}

// RetryQueue holds the backoff state of users whose replay failed.
// Users without an entry are always due.
type RetryQueue struct {
	mu      sync.Mutex
	config  RetryConfig
	entries map[string]*RetryEntry

	// Stats
	totalRetries   int64
	totalRecovered int64 // Users whose replay succeeded after a failure
}

// NewRetryQueue creates an empty retry queue.
func NewRetryQueue(cfg RetryConfig) *RetryQueue {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &RetryQueue{
		config:  cfg,
		entries: make(map[string]*RetryEntry),
	}
}

// ScheduleRetry records a failed pass for userID and returns the delay
// before the user is due again.
func (rq *RetryQueue) ScheduleRetry(userID, reason string, now time.Time) time.Duration {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	entry, ok := rq.entries[userID]
	if !ok {
		entry = &RetryEntry{UserID: userID}
		rq.entries[userID] = entry
	}
	entry.Attempt++

	// Exponential backoff: baseDelay * 2^(attempt-1)
	delay := rq.config.BaseDelay
	for i := 1; i < entry.Attempt; i++ {
		delay *= 2
		if delay > rq.config.MaxDelay {
			delay = rq.config.MaxDelay
			break
		}
	}

	entry.FailedAt = now
	entry.NextRetry = now.Add(delay)
	entry.Error = reason

	rq.totalRetries++
	return delay
}

// Due reports whether userID may be replayed at now.
func (rq *RetryQueue) Due(userID string, now time.Time) bool {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	entry, ok := rq.entries[userID]
	return !ok || !now.Before(entry.NextRetry)
}

// Clear forgets userID's backoff after a successful pass.
func (rq *RetryQueue) Clear(userID string) {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if _, ok := rq.entries[userID]; ok {
		delete(rq.entries, userID)
		rq.totalRecovered++
	}
}

// Entries returns the backoff entries ordered by next retry time.
func (rq *RetryQueue) Entries() []RetryEntry {
	rq.mu.Lock()
	out := make([]RetryEntry, 0, len(rq.entries))
	for _, e := range rq.entries {
		out = append(out, *e)
	}
	rq.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NextRetry.Equal(out[j].NextRetry) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].NextRetry.Before(out[j].NextRetry)
	})
	return out
}

// Len returns the number of users in backoff.
func (rq *RetryQueue) Len() int {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return len(rq.entries)
}

// RetryStats holds retry queue statistics.
type RetryStats struct {
	BackingOff     int   `json:"backing_off"`
	TotalRetries   int64 `json:"total_retries"`
	TotalRecovered int64 `json:"total_recovered"`
}

// RetryStats returns current retry queue statistics.
func (rq *RetryQueue) RetryStats() RetryStats {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	return RetryStats{
		BackingOff:     len(rq.entries),
		TotalRetries:   rq.totalRetries,
		TotalRecovered: rq.totalRecovered,
	}
}
