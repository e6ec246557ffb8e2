package progress_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Scoring Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestScoreSession(t *testing.T) {
	tests := []struct {
		name                    string
		typ                     domain.SessionType
		tasks, interrupts, rate int
		mult                    float64
		subtotal, total         int64
	}{
		{"pomodoro with streak", domain.SessionPomodoro, 2, 1, 9, 1.2, 280, 336},
		{"penalty floors at minimum", domain.SessionPomodoro, 0, 50, 0, 1.0, 50, 50},
		{"deep work mythic", domain.SessionDeepWork, 3, 0, 10, 2.0, 575, 1150},
		{"sprint plain", domain.SessionADHDSprint, 1, 0, 5, 1.0, 225, 225},
		{"floor of fraction", domain.SessionPomodoro, 1, 0, 0, 1.5, 175, 262},
		{"minimum then multiplied", domain.SessionADHDSprint, 0, 30, 0, 1.5, 50, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := progress.ScoreSession(tt.typ, tt.tasks, tt.interrupts, tt.rate, tt.mult)
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			if b.Subtotal != tt.subtotal {
				t.Errorf("subtotal = %d, want %d", b.Subtotal, tt.subtotal)
			}
			if b.Total != tt.total {
				t.Errorf("total = %d, want %d", b.Total, tt.total)
			}
			if b.Subtotal < progress.MinSessionPoints {
				t.Errorf("subtotal %d below floor", b.Subtotal)
			}
			if b.MultiplierApplied != tt.mult {
				t.Errorf("multiplier = %v, want %v", b.MultiplierApplied, tt.mult)
			}
		})
	}
}

func TestScoreSession_Breakdown(t *testing.T) {
	b, err := progress.ScoreSession(domain.SessionPomodoro, 2, 1, 9, 1.2)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if b.BasePoints != 150 || b.TaskBonus != 50 || b.FocusBonus != 90 || b.InterruptionPenalty != 10 {
		t.Errorf("unexpected breakdown: %+v", b)
	}
}

func TestScoreSession_InvalidInput(t *testing.T) {
	tests := []struct {
		name                    string
		typ                     domain.SessionType
		tasks, interrupts, rate int
		mult                    float64
		want                    error
	}{
		{"unknown type", "marathon", 0, 0, 0, 1.0, domain.ErrUnknownSessionType},
		{"negative tasks", domain.SessionPomodoro, -1, 0, 0, 1.0, domain.ErrInvalidInput},
		{"negative interruptions", domain.SessionPomodoro, 0, -1, 0, 1.0, domain.ErrInvalidInput},
		{"rating too high", domain.SessionPomodoro, 0, 0, 11, 1.0, domain.ErrInvalidInput},
		{"negative rating", domain.SessionPomodoro, 0, 0, -1, 1.0, domain.ErrInvalidInput},
		{"zero multiplier", domain.SessionPomodoro, 0, 0, 0, 0, domain.ErrInvalidInput},
		{"nan multiplier", domain.SessionPomodoro, 0, 0, 0, math.NaN(), domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := progress.ScoreSession(tt.typ, tt.tasks, tt.interrupts, tt.rate, tt.mult)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// State Machine Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNewSession_Defaults(t *testing.T) {
	s, err := progress.NewSession("alice", domain.SessionDeepWork, 0, 1.5)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Status != domain.SessionIdle {
		t.Errorf("status = %s, want idle", s.Status)
	}
	if s.DurationMinutes != 90 {
		t.Errorf("duration = %d, want default 90", s.DurationMinutes)
	}
	if s.PointsPotential != 600 {
		t.Errorf("potential = %d, want 600", s.PointsPotential)
	}
	if s.ID == "" {
		t.Error("session id should be assigned")
	}
}

func TestSession_Lifecycle(t *testing.T) {
	s, _ := progress.NewSession("alice", domain.SessionPomodoro, 25, 1.0)
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	if err := progress.StartSession(&s, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := progress.PauseSession(&s); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := progress.ResumeSession(&s); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := progress.CompleteSession(&s, now.Add(25*time.Minute)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want completed", s.Status)
	}
	if !s.CompletedAt.Equal(now.Add(25 * time.Minute)) {
		t.Errorf("completed at = %v", s.CompletedAt)
	}
}

func TestSession_CompleteTwice(t *testing.T) {
	s, _ := progress.NewSession("alice", domain.SessionPomodoro, 25, 1.0)
	now := time.Now()
	_ = progress.StartSession(&s, now)
	if err := progress.CompleteSession(&s, now); err != nil {
		t.Fatalf("complete: %v", err)
	}

	err := progress.CompleteSession(&s, now)
	var te *domain.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != domain.SessionCompleted || te.Action != "complete" {
		t.Errorf("unexpected transition error: %+v", te)
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Error("TransitionError should match ErrInvalidTransition")
	}
}

func TestSession_InvalidTransitions(t *testing.T) {
	s, _ := progress.NewSession("alice", domain.SessionADHDSprint, 0, 1.0)
	if err := progress.PauseSession(&s); err == nil {
		t.Error("pausing an idle session should fail")
	}
	if err := progress.CompleteSession(&s, time.Now()); err == nil {
		t.Error("completing an idle session should fail")
	}
	_ = progress.StartSession(&s, time.Now())
	if err := progress.ResumeSession(&s); err == nil {
		t.Error("resuming an active session should fail")
	}
	if err := progress.StartSession(&s, time.Now()); err == nil {
		t.Error("starting twice should fail")
	}
}

func TestSessions_Registry(t *testing.T) {
	reg := progress.NewSessions()
	s, err := reg.Start("alice", domain.SessionPomodoro, 0, 1.0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Status != domain.SessionActive {
		t.Errorf("status = %s, want active", s.Status)
	}

	if _, err := reg.Get("bob", s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("other user lookup should be not found, got %v", err)
	}
	if _, err := reg.Pause("alice", s.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	done, err := reg.Complete("alice", s.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.SessionCompleted {
		t.Errorf("status = %s", done.Status)
	}
	if _, err := reg.Complete("alice", s.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second complete: got %v", err)
	}
	if err := reg.End("alice", s.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected empty registry, got %d", reg.Len())
	}
}
