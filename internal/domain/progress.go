// Package domain holds the pure types of the progress engine.
// Streaks, bonus claims, focus sessions, point breakdowns and
// achievement/challenge progress. No infrastructure dependency.
package domain

import (
	"fmt"
	"time"
)

// ─── Calendar Days ──────────────────────────────────────────────────────────

// DayLayout is the text form of a CompletionDay.
const DayLayout = "2006-01-02"

// CompletionDay is a calendar date in the user's local zone.
// Day granularity only; comparable, usable as a map key.
type CompletionDay struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) CompletionDay {
	y, m, d := t.Date()
	return CompletionDay{Year: y, Month: m, Day: d}
}

// ParseDay parses "YYYY-MM-DD".
func ParseDay(s string) (CompletionDay, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return CompletionDay{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}
	return DayOf(t), nil
}

// AddDays returns the day n days after d (n may be negative).
func (d CompletionDay) AddDays(n int) CompletionDay {
	// Noon UTC keeps the arithmetic clear of any DST edge.
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than o.
func (d CompletionDay) Before(o CompletionDay) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// IsZero reports whether d is the zero value.
func (d CompletionDay) IsZero() bool {
	return d == CompletionDay{}
}

func (d CompletionDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler. The zero day encodes
// as the empty string.
func (d CompletionDay) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *CompletionDay) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = CompletionDay{}
		return nil
	}
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ─── Streak Types ───────────────────────────────────────────────────────────

// Tier is a named bracket of streak lengths. Min is inclusive, Max is
// exclusive; Max == 0 means unbounded.
type Tier struct {
	Name       string  `json:"name"`
	Min        int     `json:"min"`
	Max        int     `json:"max,omitempty"`
	Multiplier float64 `json:"multiplier"`
}

// Contains reports whether streak falls inside the tier.
func (t Tier) Contains(streak int) bool {
	return streak >= t.Min && (t.Max == 0 || streak < t.Max)
}

// StreakSnapshot is derived from the completion ledger on demand.
type StreakSnapshot struct {
	Current    int     `json:"current"`
	Longest    int     `json:"longest"`
	Tier       string  `json:"tier"`
	Multiplier float64 `json:"multiplier"`
}

// ─── Bonus Types ────────────────────────────────────────────────────────────

// BonusClaimState tracks the highest streak a bonus was granted for.
type BonusClaimState struct {
	LastClaimedStreak int `json:"last_claimed_streak"`
}

// RejectReason explains a rejected bonus claim.
type RejectReason string

const (
	RejectAlreadyClaimed RejectReason = "already_claimed"
	RejectNotEligible    RejectReason = "not_eligible"
)

// ClaimResult is the outcome of a bonus claim. A rejection is a normal
// outcome: Granted is false and Reason says why.
type ClaimResult struct {
	Granted       bool            `json:"granted"`
	Reason        RejectReason    `json:"reason,omitempty"`
	Streak        int             `json:"streak"`
	PointsGranted int64           `json:"points_granted"`
	State         BonusClaimState `json:"state"`
}

// ─── Focus Session Types ────────────────────────────────────────────────────

// SessionType is the kind of focus session.
type SessionType string

const (
	SessionPomodoro   SessionType = "pomodoro"
	SessionDeepWork   SessionType = "deep_work"
	SessionADHDSprint SessionType = "adhd_sprint"
)

// ParseSessionType validates a session type name.
func ParseSessionType(s string) (SessionType, error) {
	switch t := SessionType(s); t {
	case SessionPomodoro, SessionDeepWork, SessionADHDSprint:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSessionType, s)
}

// SessionStatus is the lifecycle state of a focus session.
type SessionStatus string

const (
	SessionIdle      SessionStatus = "idle"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
)

// FocusSession is a single timed focus block. Owned by the foreground
// activity that created it.
type FocusSession struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Type            SessionType   `json:"type"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	PointsPotential int64         `json:"points_potential"`
	StartedAt       time.Time     `json:"started_at,omitempty"`
	CompletedAt     time.Time     `json:"completed_at,omitempty"`
}

// SessionOutcome is what the user reports when a session completes.
type SessionOutcome struct {
	TasksCompleted int `json:"tasks_completed"`
	Interruptions  int `json:"interruptions"`
	FocusRating    int `json:"focus_rating"`
}

// PointsBreakdown is the immutable score of one completed session.
type PointsBreakdown struct {
	BasePoints          int64   `json:"base_points"`
	TaskBonus           int64   `json:"task_bonus"`
	FocusBonus          int64   `json:"focus_bonus"`
	InterruptionPenalty int64   `json:"interruption_penalty"`
	Subtotal            int64   `json:"subtotal"`
	MultiplierApplied   float64 `json:"multiplier_applied"`
	Total               int64   `json:"total"`
}

// ─── Progress Item Types ────────────────────────────────────────────────────

// ItemKind distinguishes achievements from challenges.
type ItemKind string

const (
	KindAchievement ItemKind = "achievement"
	KindChallenge   ItemKind = "challenge"
)

// Metric names the activity that drives an item's progress.
type Metric string

const (
	MetricTasksCompleted    Metric = "tasks_completed"
	MetricSessionsCompleted Metric = "sessions_completed"
	MetricFocusMinutes      Metric = "focus_minutes"
	MetricDeepWorkSessions  Metric = "deep_work_sessions"
	MetricStreakDays        Metric = "streak_days"
	MetricActiveDays        Metric = "active_days"
)

// Reward is granted once when an item unlocks while eligible.
type Reward struct {
	Points int64  `json:"points"`
	Badge  string `json:"badge,omitempty"`
}

// ProgressItem is an achievement or a challenge.
// Invariant: 0 <= Progress <= MaxProgress; Unlocked is sticky.
type ProgressItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        ItemKind  `json:"kind"`
	Category    string    `json:"category"`
	Metric      Metric    `json:"metric"`
	Progress    int       `json:"progress"`
	MaxProgress int       `json:"max_progress"`
	Unlocked    bool      `json:"unlocked"`
	UnlockedAt  time.Time `json:"unlocked_at,omitempty"`
	Reward      Reward    `json:"reward"`
	Deadline    time.Time `json:"deadline,omitempty"` // challenges only; zero = none
}

// IsExpired reports whether a challenge deadline has passed at now.
func (p ProgressItem) IsExpired(now time.Time) bool {
	return p.Kind == KindChallenge && !p.Deadline.IsZero() && now.After(p.Deadline)
}

// ProgressPct returns completion percentage (0-100).
func (p ProgressItem) ProgressPct() float64 {
	if p.MaxProgress <= 0 {
		return 100.0
	}
	pct := float64(p.Progress) / float64(p.MaxProgress) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ProgressStatus is returned by every progress bump.
type ProgressStatus struct {
	Item           ProgressItem `json:"item"`
	JustUnlocked   bool         `json:"just_unlocked"`
	Expired        bool         `json:"expired"`
	RewardEligible bool         `json:"reward_eligible"`
}

// ─── Activity Feed ──────────────────────────────────────────────────────────

// EventType categorizes activity events coming from the UI.
type EventType string

const (
	EventTaskCompleted    EventType = "task_completed"
	EventSessionCompleted EventType = "session_completed"
	EventDayRollover      EventType = "day_rollover"
)

// ActivityEvent is one entry of the activity feed. ID is the stable
// identity of the event; replays carry the same ID.
type ActivityEvent struct {
	ID      string        `json:"id"`
	Type    EventType     `json:"type"`
	Day     CompletionDay `json:"day"`
	At      time.Time     `json:"at"`
	Payload EventPayload  `json:"payload"`
}

// EventPayload carries the optional numbers of an event.
type EventPayload struct {
	Count           int         `json:"count,omitempty"`
	SessionType     SessionType `json:"session_type,omitempty"`
	DurationMinutes int         `json:"duration_minutes,omitempty"`
}

// ─── Points Ledger ──────────────────────────────────────────────────────────

// PointsSource categorizes how points were earned.
type PointsSource string

const (
	PointsStreakBonus PointsSource = "streak_bonus"
	PointsSession     PointsSource = "session"
	PointsReward      PointsSource = "reward"
	PointsCorrection  PointsSource = "correction"
)

// PointsEntry is one grant in the points ledger.
type PointsEntry struct {
	ID             int64        `json:"id"`
	UserID         string       `json:"user_id"`
	IdempotencyKey string       `json:"idempotency_key"`
	Amount         int64        `json:"amount"`
	Source         PointsSource `json:"source"`
	Reason         string       `json:"reason"`
	CreatedAt      time.Time    `json:"created_at"`
}
