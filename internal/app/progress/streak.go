// Package progress implements the progress and gamification engine:
// completion ledger, streaks, idempotent streak bonuses, session scoring,
// and achievement/challenge progress.
// Pure functions take every input explicitly, including "today".
package progress

import "github.com/ssaritan18/Project-1-sub000/internal/domain"

// tiers is ordered, exhaustive, and non-overlapping.
// Multipliers are non-decreasing from one tier to the next.
var tiers = []domain.Tier{
	{Name: "Getting Started", Min: 0, Max: 3, Multiplier: 1.0},
	{Name: "Building Momentum", Min: 3, Max: 7, Multiplier: 1.0},
	{Name: "On Fire", Min: 7, Max: 14, Multiplier: 1.2},
	{Name: "Unstoppable", Min: 14, Max: 21, Multiplier: 1.5},
	{Name: "Legendary", Min: 21, Max: 30, Multiplier: 1.5},
	{Name: "Mythic", Min: 30, Multiplier: 2.0},
}

// Tiers returns a copy of the tier table.
func Tiers() []domain.Tier {
	out := make([]domain.Tier, len(tiers))
	copy(out, tiers)
	return out
}

// TierFor returns the tier a streak length falls into.
// Negative lengths map to the first tier.
func TierFor(streak int) domain.Tier {
	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i].Contains(streak) {
			return tiers[i]
		}
	}
	return tiers[0]
}

// MultiplierFor returns the points multiplier for a streak length.
// ≥30 → 2.0, ≥14 → 1.5, ≥7 → 1.2, else 1.0.
func MultiplierFor(streak int) float64 {
	return TierFor(streak).Multiplier
}

// ComputeStreak derives the streak snapshot from the ledger.
// current walks today, today-1, … and stops at the first missing day, so a
// ledger without today yields 0. longest is the longest run anywhere.
func ComputeStreak(l *Ledger, today domain.CompletionDay) domain.StreakSnapshot {
	current := 0
	for day := today; l.Has(day); day = day.AddDays(-1) {
		current++
	}

	longest, run := 0, 0
	var prev domain.CompletionDay
	for i, day := range l.Days() {
		if i > 0 && prev.AddDays(1) == day {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = day
	}

	tier := TierFor(current)
	return domain.StreakSnapshot{
		Current:    current,
		Longest:    longest,
		Tier:       tier.Name,
		Multiplier: tier.Multiplier,
	}
}
