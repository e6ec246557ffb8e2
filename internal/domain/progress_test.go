package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// ─── Calendar Day Tests ─────────────────────────────────────────────────────

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-07-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (CompletionDay{Year: 2025, Month: time.July, Day: 1}) {
		t.Errorf("got %+v", d)
	}
	if d.String() != "2025-07-01" {
		t.Errorf("String() = %s", d)
	}

	for _, bad := range []string{"", "2025-7-1", "2025-02-30", "yesterday", "2025/07/01"} {
		if _, err := ParseDay(bad); !errors.Is(err, ErrMalformedDate) {
			t.Errorf("ParseDay(%q) = %v, want ErrMalformedDate", bad, err)
		}
	}
}

func TestCompletionDay_AddDays(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2025-07-01", 1, "2025-07-02"},
		{"2025-07-01", -1, "2025-06-30"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2023-02-28", 1, "2023-03-01"},
		{"2025-03-30", -30, "2025-02-28"},
	}
	for _, tt := range tests {
		d, _ := ParseDay(tt.from)
		if got := d.AddDays(tt.n).String(); got != tt.want {
			t.Errorf("%s + %d = %s, want %s", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestCompletionDay_DayOfUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	ts := time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC)
	if got := DayOf(ts.In(tokyo)).String(); got != "2025-07-02" {
		t.Errorf("DayOf in JST = %s, want 2025-07-02", got)
	}
	if got := DayOf(ts).String(); got != "2025-07-01" {
		t.Errorf("DayOf in UTC = %s, want 2025-07-01", got)
	}
}

func TestCompletionDay_Before(t *testing.T) {
	a, _ := ParseDay("2024-12-31")
	b, _ := ParseDay("2025-01-01")
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Error("Before ordering wrong")
	}
}

func TestCompletionDay_JSON(t *testing.T) {
	type wrapper struct {
		Day CompletionDay `json:"day"`
	}
	d, _ := ParseDay("2025-07-01")
	data, err := json.Marshal(wrapper{Day: d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"day":"2025-07-01"}` {
		t.Errorf("json = %s", data)
	}

	var empty wrapper
	data, _ = json.Marshal(empty)
	if err := json.Unmarshal(data, &empty); err != nil {
		t.Fatalf("zero day should round-trip: %v", err)
	}
	if !empty.Day.IsZero() {
		t.Errorf("zero day = %+v", empty.Day)
	}

	var bad wrapper
	if err := json.Unmarshal([]byte(`{"day":"07/01/2025"}`), &bad); !errors.Is(err, ErrMalformedDate) {
		t.Errorf("bad day: got %v", err)
	}
}

// ─── Item Tests ─────────────────────────────────────────────────────────────

func TestProgressItem_IsExpired(t *testing.T) {
	deadline := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	ch := ProgressItem{Kind: KindChallenge, Deadline: deadline}
	if ch.IsExpired(deadline) {
		t.Error("deadline instant itself is not expired")
	}
	if !ch.IsExpired(deadline.Add(time.Second)) {
		t.Error("after deadline should be expired")
	}
	ach := ProgressItem{Kind: KindAchievement, Deadline: deadline}
	if ach.IsExpired(deadline.Add(time.Hour)) {
		t.Error("achievements never expire")
	}
}

func TestProgressItem_ProgressPct(t *testing.T) {
	if pct := (ProgressItem{Progress: 5, MaxProgress: 10}).ProgressPct(); pct != 50 {
		t.Errorf("pct = %v, want 50", pct)
	}
}

func TestParseSessionType(t *testing.T) {
	for _, s := range []string{"pomodoro", "deep_work", "adhd_sprint"} {
		if _, err := ParseSessionType(s); err != nil {
			t.Errorf("ParseSessionType(%q): %v", s, err)
		}
	}
	if _, err := ParseSessionType("nap"); !errors.Is(err, ErrUnknownSessionType) {
		t.Errorf("unknown type: got %v", err)
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestTransitionError(t *testing.T) {
	var err error = &TransitionError{SessionID: "s1", From: SessionCompleted, Action: "complete"}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("should unwrap to ErrInvalidTransition")
	}
	if err.Error() != "session s1: cannot complete from completed" {
		t.Errorf("message = %q", err.Error())
	}
}

// ─── Key Tests ──────────────────────────────────────────────────────────────

func TestIdempotencyKeys(t *testing.T) {
	if BonusClaimKey("alice", 7) != BonusClaimKey("alice", 7) {
		t.Error("keys must be stable")
	}
	d, _ := ParseDay("2025-07-01")
	keys := []string{
		BonusClaimKey("alice", 7),
		BonusClaimKey("alice", 6),
		BonusClaimKey("bob", 7),
		SessionKey("alice", "s1"),
		ProgressKey("alice", "tasks_10", "e1"),
		RecordDayKey("alice", d),
		RewardKey("alice", "tasks_10"),
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		if seen[k] {
			t.Errorf("key collision: %s", k)
		}
		seen[k] = true
	}
}

func TestOpKind_Mutating(t *testing.T) {
	if OpFetchStreak.Mutating() {
		t.Error("fetch_streak is read-only")
	}
	for _, k := range []OpKind{OpRecordDay, OpClaimBonus, OpCompleteSession, OpBumpProgress} {
		if !k.Mutating() {
			t.Errorf("%s should be mutating", k)
		}
	}
}
