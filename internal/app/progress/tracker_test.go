package progress_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func testItem() domain.ProgressItem {
	return domain.ProgressItem{
		ID:          "tasks_10",
		Name:        "Task Tamer",
		Kind:        domain.KindAchievement,
		Metric:      domain.MetricTasksCompleted,
		MaxProgress: 10,
		Reward:      domain.Reward{Points: 100},
	}
}

func TestBumpProgress_Clamps(t *testing.T) {
	now := time.Now()
	st, err := progress.BumpProgress(testItem(), 25, now)
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if st.Item.Progress != 10 {
		t.Errorf("progress = %d, want clamp to 10", st.Item.Progress)
	}
	if !st.JustUnlocked || !st.RewardEligible {
		t.Errorf("expected unlock with reward, got %+v", st)
	}

	st, _ = progress.BumpProgress(testItem(), -5, now)
	if st.Item.Progress != 0 {
		t.Errorf("progress = %d, want clamp to 0", st.Item.Progress)
	}
}

func TestBumpProgress_StickyUnlock(t *testing.T) {
	now := time.Now()
	st, _ := progress.BumpProgress(testItem(), 10, now)
	if !st.Item.Unlocked {
		t.Fatal("expected unlock")
	}

	st, err := progress.BumpProgress(st.Item, -4, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if !st.Item.Unlocked {
		t.Error("negative delta must not re-lock")
	}
	if st.JustUnlocked {
		t.Error("already unlocked item must not unlock again")
	}
	if !st.Item.UnlockedAt.Equal(now) {
		t.Error("unlock time should be kept")
	}

	st, _ = progress.BumpProgress(st.Item, 10, now.Add(2*time.Hour))
	if st.JustUnlocked || st.RewardEligible {
		t.Error("reaching max again is not a second unlock")
	}
}

func TestBumpProgress_ExpiredChallenge(t *testing.T) {
	deadline := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
	item := domain.ProgressItem{
		ID:          "weekly_tasks_15-2025-W27",
		Kind:        domain.KindChallenge,
		Metric:      domain.MetricTasksCompleted,
		MaxProgress: 15,
		Progress:    14,
		Reward:      domain.Reward{Points: 120},
		Deadline:    deadline,
	}

	st, err := progress.BumpProgress(item, 1, deadline.Add(time.Hour))
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if !st.Expired {
		t.Error("expected expired")
	}
	if st.RewardEligible {
		t.Error("expired challenge must never be reward eligible")
	}
	if st.Item.Progress != 15 {
		t.Errorf("progress still recorded: got %d", st.Item.Progress)
	}

	st, _ = progress.BumpProgress(item, 1, deadline.Add(-time.Hour))
	if st.Expired || !st.RewardEligible {
		t.Errorf("before deadline should be eligible, got %+v", st)
	}
}

func TestBumpProgress_InvalidItem(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ProgressItem)
	}{
		{"no id", func(i *domain.ProgressItem) { i.ID = "" }},
		{"zero max", func(i *domain.ProgressItem) { i.MaxProgress = 0 }},
		{"negative progress", func(i *domain.ProgressItem) { i.Progress = -1 }},
		{"unknown kind", func(i *domain.ProgressItem) { i.Kind = "badge" }},
		{"negative reward", func(i *domain.ProgressItem) { i.Reward.Points = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := testItem()
			tt.mutate(&item)
			if _, err := progress.BumpProgress(item, 1, time.Now()); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("got %v, want invalid input", err)
			}
		})
	}
}

func TestResetItem(t *testing.T) {
	st, _ := progress.BumpProgress(testItem(), 10, time.Now())
	item := progress.ResetItem(st.Item)
	if item.Progress != 0 || item.Unlocked || !item.UnlockedAt.IsZero() {
		t.Errorf("reset left state behind: %+v", item)
	}
}
