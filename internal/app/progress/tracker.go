package progress

import (
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ValidateItem checks the structural invariants of a progress item.
func ValidateItem(item domain.ProgressItem) error {
	switch {
	case item.ID == "":
		return domain.Invalid("progress item needs an id")
	case item.Kind != domain.KindAchievement && item.Kind != domain.KindChallenge:
		return domain.Invalid("progress item %s: unknown kind %q", item.ID, item.Kind)
	case item.MaxProgress <= 0:
		return domain.Invalid("progress item %s: max progress must be positive, got %d", item.ID, item.MaxProgress)
	case item.Progress < 0:
		return domain.Invalid("progress item %s: progress must be non-negative, got %d", item.ID, item.Progress)
	case item.Reward.Points < 0:
		return domain.Invalid("progress item %s: reward must be non-negative, got %d", item.ID, item.Reward.Points)
	}
	return nil
}

// BumpProgress applies delta to an item's progress, clamped to
// [0, MaxProgress]. The first time the clamp reaches MaxProgress the item
// unlocks; an unlocked item never re-locks here, whatever the delta.
// A challenge past its deadline still records progress but reports
// Expired and is never RewardEligible.
func BumpProgress(item domain.ProgressItem, delta int, now time.Time) (domain.ProgressStatus, error) {
	if err := ValidateItem(item); err != nil {
		return domain.ProgressStatus{}, err
	}

	item.Progress = min(max(item.Progress+delta, 0), item.MaxProgress)

	status := domain.ProgressStatus{Expired: item.IsExpired(now)}
	if !item.Unlocked && item.Progress >= item.MaxProgress {
		item.Unlocked = true
		item.UnlockedAt = now
		status.JustUnlocked = true
		status.RewardEligible = !status.Expired
	}
	status.Item = item
	return status, nil
}

// ResetItem clears progress and the unlock flag. Only a full account
// reset uses it.
func ResetItem(item domain.ProgressItem) domain.ProgressItem {
	item.Progress = 0
	item.Unlocked = false
	item.UnlockedAt = time.Time{}
	return item
}
