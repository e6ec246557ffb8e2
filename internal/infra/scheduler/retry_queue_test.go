package scheduler

import (
	"testing"
	"time"
)

// ─── Retry Queue Tests ──────────────────────────────────────────────────────

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRetryQueue_UnknownUserIsDue(t *testing.T) {
	rq := NewRetryQueue(DefaultRetryConfig())

	if !rq.Due("alice", t0) {
		t.Error("a user with no failures should be due")
	}
	if rq.Len() != 0 {
		t.Errorf("len = %d, want 0", rq.Len())
	}
}

func TestRetryQueue_ExponentialBackoff(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{
		BaseDelay: 10 * time.Second,
		MaxDelay:  45 * time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 45 * time.Second}, // capped
		{5, 45 * time.Second},
	}
	for _, tt := range tests {
		got := rq.ScheduleRetry("alice", "timeout", t0)
		if got != tt.want {
			t.Errorf("attempt %d: delay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryQueue_DueAfterDelay(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{BaseDelay: time.Minute, MaxDelay: time.Hour})

	rq.ScheduleRetry("alice", "unreachable", t0)
	if rq.Due("alice", t0.Add(30*time.Second)) {
		t.Error("alice should not be due before the backoff expires")
	}
	if !rq.Due("alice", t0.Add(time.Minute)) {
		t.Error("alice should be due once the backoff expires")
	}
	if !rq.Due("bob", t0) {
		t.Error("backoff must be per user")
	}
}

func TestRetryQueue_ClearResetsBackoff(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute})

	rq.ScheduleRetry("alice", "x", t0)
	rq.ScheduleRetry("alice", "x", t0)
	rq.Clear("alice")
	rq.Clear("bob") // never failed: not counted

	if got := rq.ScheduleRetry("alice", "x", t0); got != time.Second {
		t.Errorf("delay after clear = %v, want %v", got, time.Second)
	}

	stats := rq.RetryStats()
	if stats.TotalRetries != 3 {
		t.Errorf("total retries = %d, want 3", stats.TotalRetries)
	}
	if stats.TotalRecovered != 1 {
		t.Errorf("total recovered = %d, want 1", stats.TotalRecovered)
	}
	if stats.BackingOff != 1 {
		t.Errorf("backing off = %d, want 1", stats.BackingOff)
	}
}

func TestRetryQueue_EntriesOrdered(t *testing.T) {
	rq := NewRetryQueue(RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute})

	rq.ScheduleRetry("late", "x", t0.Add(time.Hour))
	rq.ScheduleRetry("early", "y", t0)

	entries := rq.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].UserID != "early" || entries[1].UserID != "late" {
		t.Errorf("order = %s, %s; want early, late", entries[0].UserID, entries[1].UserID)
	}
	if entries[0].Error != "y" {
		t.Errorf("error = %q, want y", entries[0].Error)
	}
}
