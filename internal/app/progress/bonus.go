package progress

import "github.com/ssaritan18/Project-1-sub000/internal/domain"

// BonusInterval is the milestone spacing of streak bonuses.
const BonusInterval = 3

// IsBonusAvailable reports whether a bonus can be claimed for streak.
// A claim needs a positive streak above the last claimed one with a
// milestone (multiple of BonusInterval) in (lastClaimed, streak]. A streak
// that stepped past an unclaimed milestone, e.g. 7 after 3, still qualifies.
func IsBonusAvailable(streak, lastClaimed int) bool {
	if streak <= 0 || streak <= lastClaimed {
		return false
	}
	return streak/BonusInterval > max(lastClaimed, 0)/BonusInterval
}

// BonusPoints returns the grant for a streak: ≥7 → 100, ≥3 → 50, else 0.
func BonusPoints(streak int) int64 {
	switch {
	case streak >= 7:
		return 100
	case streak >= 3:
		return 50
	default:
		return 0
	}
}

// ClaimBonus attempts the claim transition. A rejection is returned as a
// result with Granted=false, never as an error; errors mean invalid input.
// On success the returned State carries LastClaimedStreak = streak.
func ClaimBonus(streak int, state domain.BonusClaimState) (domain.ClaimResult, error) {
	if streak < 0 {
		return domain.ClaimResult{}, domain.Invalid("streak must be non-negative, got %d", streak)
	}
	if state.LastClaimedStreak < 0 {
		return domain.ClaimResult{}, domain.Invalid("last claimed streak must be non-negative, got %d", state.LastClaimedStreak)
	}

	result := domain.ClaimResult{Streak: streak, State: state}
	switch {
	case streak > 0 && streak <= state.LastClaimedStreak:
		result.Reason = domain.RejectAlreadyClaimed
		return result, nil
	case !IsBonusAvailable(streak, state.LastClaimedStreak):
		result.Reason = domain.RejectNotEligible
		return result, nil
	}

	result.Granted = true
	result.PointsGranted = BonusPoints(streak)
	result.State = domain.BonusClaimState{LastClaimedStreak: streak}
	return result, nil
}
