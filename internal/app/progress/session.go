package progress

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ─── Session Scoring ────────────────────────────────────────────────────────

const (
	PointsPerTask       = 25
	PointsPerFocusPoint = 10
	PenaltyPerInterrupt = 10
	MinSessionPoints    = 50
	MaxFocusRating      = 10
)

// basePoints is the fixed per-type reward before bonuses.
var basePoints = map[domain.SessionType]int64{
	domain.SessionPomodoro:   150,
	domain.SessionADHDSprint: 150,
	domain.SessionDeepWork:   400,
}

// defaultDurations are used when a session starts without a duration.
var defaultDurations = map[domain.SessionType]int{
	domain.SessionPomodoro:   25,
	domain.SessionADHDSprint: 15,
	domain.SessionDeepWork:   90,
}

// BasePoints returns the base reward of a session type.
func BasePoints(t domain.SessionType) (int64, error) {
	if _, err := domain.ParseSessionType(string(t)); err != nil {
		return 0, err
	}
	return basePoints[t], nil
}

// ScoreSession computes the points breakdown of one completed session.
// Negative counts, a rating outside 0..MaxFocusRating and a non-positive
// multiplier are rejected.
func ScoreSession(t domain.SessionType, tasksCompleted, interruptions, focusRating int, multiplier float64) (domain.PointsBreakdown, error) {
	base, err := BasePoints(t)
	if err != nil {
		return domain.PointsBreakdown{}, err
	}
	switch {
	case tasksCompleted < 0:
		return domain.PointsBreakdown{}, domain.Invalid("tasks completed must be non-negative, got %d", tasksCompleted)
	case interruptions < 0:
		return domain.PointsBreakdown{}, domain.Invalid("interruptions must be non-negative, got %d", interruptions)
	case focusRating < 0 || focusRating > MaxFocusRating:
		return domain.PointsBreakdown{}, domain.Invalid("focus rating must be in 0..%d, got %d", MaxFocusRating, focusRating)
	case math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0:
		return domain.PointsBreakdown{}, domain.Invalid("multiplier must be positive, got %v", multiplier)
	}

	b := domain.PointsBreakdown{
		BasePoints:          base,
		TaskBonus:           int64(tasksCompleted) * PointsPerTask,
		FocusBonus:          int64(focusRating) * PointsPerFocusPoint,
		InterruptionPenalty: int64(interruptions) * PenaltyPerInterrupt,
		MultiplierApplied:   multiplier,
	}
	b.Subtotal = max(MinSessionPoints, b.BasePoints+b.TaskBonus+b.FocusBonus-b.InterruptionPenalty)
	// The epsilon absorbs binary float error, e.g. 280 × 1.2.
	b.Total = int64(math.Floor(float64(b.Subtotal)*multiplier + 1e-9))
	return b, nil
}

// ScoreOutcome is ScoreSession over a reported outcome.
func ScoreOutcome(t domain.SessionType, o domain.SessionOutcome, multiplier float64) (domain.PointsBreakdown, error) {
	return ScoreSession(t, o.TasksCompleted, o.Interruptions, o.FocusRating, multiplier)
}

// ─── Session State Machine ──────────────────────────────────────────────────
// idle → active ⇄ paused → completed. completed is terminal.

// NewSession creates an idle session. A zero duration takes the type's
// default; PointsPotential is base points at the given multiplier.
func NewSession(userID string, t domain.SessionType, durationMinutes int, multiplier float64) (domain.FocusSession, error) {
	base, err := BasePoints(t)
	if err != nil {
		return domain.FocusSession{}, err
	}
	if durationMinutes < 0 {
		return domain.FocusSession{}, domain.Invalid("duration must be non-negative, got %d", durationMinutes)
	}
	if durationMinutes == 0 {
		durationMinutes = defaultDurations[t]
	}
	if multiplier <= 0 {
		multiplier = 1.0
	}
	return domain.FocusSession{
		ID:              uuid.New().String(),
		UserID:          userID,
		Type:            t,
		DurationMinutes: durationMinutes,
		Status:          domain.SessionIdle,
		PointsPotential: int64(math.Floor(float64(base)*multiplier + 1e-9)),
	}, nil
}

// transition moves s to `to` if its status is one of `from`.
func transition(s *domain.FocusSession, action string, to domain.SessionStatus, from ...domain.SessionStatus) error {
	for _, f := range from {
		if s.Status == f {
			s.Status = to
			return nil
		}
	}
	err := &domain.TransitionError{SessionID: s.ID, From: s.Status, Action: action}
	log.Printf("[progress] ERROR state machine violation: %v", err)
	return err
}

// StartSession moves an idle session to active.
func StartSession(s *domain.FocusSession, now time.Time) error {
	if err := transition(s, "start", domain.SessionActive, domain.SessionIdle); err != nil {
		return err
	}
	s.StartedAt = now
	return nil
}

// PauseSession moves an active session to paused.
func PauseSession(s *domain.FocusSession) error {
	return transition(s, "pause", domain.SessionPaused, domain.SessionActive)
}

// ResumeSession moves a paused session back to active.
func ResumeSession(s *domain.FocusSession) error {
	return transition(s, "resume", domain.SessionActive, domain.SessionPaused)
}

// CompleteSession finishes an active or paused session.
// Completing an already completed session is a TransitionError.
func CompleteSession(s *domain.FocusSession, now time.Time) error {
	if err := transition(s, "complete", domain.SessionCompleted, domain.SessionActive, domain.SessionPaused); err != nil {
		return err
	}
	s.CompletedAt = now
	return nil
}

// ─── Session Registry ───────────────────────────────────────────────────────

// Sessions holds the in-process focus sessions. Sessions do not survive a
// restart; callers persist them explicitly if they need to.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.FocusSession
	now      func() time.Time
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*domain.FocusSession),
		now:      time.Now,
	}
}

// Start creates and starts a session.
func (r *Sessions) Start(userID string, t domain.SessionType, durationMinutes int, multiplier float64) (domain.FocusSession, error) {
	s, err := NewSession(userID, t, durationMinutes, multiplier)
	if err != nil {
		return domain.FocusSession{}, err
	}
	if err := StartSession(&s, r.now()); err != nil {
		return domain.FocusSession{}, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = &s
	r.mu.Unlock()
	return s, nil
}

// Get returns a copy of a session.
func (r *Sessions) Get(userID, id string) (domain.FocusSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return domain.FocusSession{}, domain.ErrSessionNotFound
	}
	return *s, nil
}

// Pause pauses an active session.
func (r *Sessions) Pause(userID, id string) (domain.FocusSession, error) {
	return r.mutate(userID, id, PauseSession)
}

// Resume resumes a paused session.
func (r *Sessions) Resume(userID, id string) (domain.FocusSession, error) {
	return r.mutate(userID, id, ResumeSession)
}

// Complete completes a session. The completed session stays in the
// registry until End so a repeated Complete is reported, not forgotten.
func (r *Sessions) Complete(userID, id string) (domain.FocusSession, error) {
	return r.mutate(userID, id, func(s *domain.FocusSession) error {
		return CompleteSession(s, r.now())
	})
}

// End discards a session in any state.
func (r *Sessions) End(userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len returns how many sessions are held.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Sessions) mutate(userID, id string, fn func(*domain.FocusSession) error) (domain.FocusSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return domain.FocusSession{}, domain.ErrSessionNotFound
	}
	if err := fn(s); err != nil {
		return *s, err
	}
	return *s, nil
}
