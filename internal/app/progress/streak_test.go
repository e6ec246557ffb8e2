package progress_test

import (
	"testing"

	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func day(t *testing.T, s string) domain.CompletionDay {
	t.Helper()
	d, err := domain.ParseDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func ledgerOf(t *testing.T, days ...string) *progress.Ledger {
	t.Helper()
	l := progress.NewLedger()
	for _, s := range days {
		l.Add(day(t, s))
	}
	return l
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLedger_AddIdempotent(t *testing.T) {
	l := progress.NewLedger()
	d := day(t, "2025-07-01")
	if !l.Add(d) {
		t.Error("first add should report new")
	}
	if l.Add(d) {
		t.Error("second add should report existing")
	}
	if l.Len() != 1 {
		t.Errorf("expected 1 day, got %d", l.Len())
	}
}

func TestLedger_DaysSorted(t *testing.T) {
	l := ledgerOf(t, "2025-07-03", "2024-12-31", "2025-07-01")
	days := l.Days()
	want := []string{"2024-12-31", "2025-07-01", "2025-07-03"}
	for i, w := range want {
		if days[i].String() != w {
			t.Errorf("days[%d] = %s, want %s", i, days[i], w)
		}
	}
}

func TestLedger_Reset(t *testing.T) {
	l := ledgerOf(t, "2025-07-01", "2025-07-02")
	l.Reset()
	if l.Len() != 0 || l.Has(day(t, "2025-07-01")) {
		t.Error("reset should empty the ledger")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name    string
		days    []string
		today   string
		current int
		longest int
	}{
		{"empty", nil, "2025-07-10", 0, 0},
		{"today only", []string{"2025-07-10"}, "2025-07-10", 1, 1},
		{"five consecutive", []string{"2025-07-06", "2025-07-07", "2025-07-08", "2025-07-09", "2025-07-10"}, "2025-07-10", 5, 5},
		{"today absent", []string{"2025-07-08", "2025-07-09"}, "2025-07-10", 0, 2},
		{"broken run keeps longest", []string{"2025-07-01", "2025-07-02", "2025-07-03", "2025-07-09", "2025-07-10"}, "2025-07-10", 2, 3},
		{"month boundary", []string{"2025-06-29", "2025-06-30", "2025-07-01"}, "2025-07-01", 3, 3},
		{"year boundary", []string{"2024-12-30", "2024-12-31", "2025-01-01"}, "2025-01-01", 3, 3},
		{"leap day", []string{"2024-02-28", "2024-02-29", "2024-03-01"}, "2024-03-01", 3, 3},
		{"future days ignored by current", []string{"2025-07-10", "2025-07-12"}, "2025-07-10", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := progress.ComputeStreak(ledgerOf(t, tt.days...), day(t, tt.today))
			if snap.Current != tt.current {
				t.Errorf("current = %d, want %d", snap.Current, tt.current)
			}
			if snap.Longest != tt.longest {
				t.Errorf("longest = %d, want %d", snap.Longest, tt.longest)
			}
			if snap.Longest < snap.Current {
				t.Errorf("longest %d < current %d", snap.Longest, snap.Current)
			}
		})
	}
}

func TestComputeStreak_Pure(t *testing.T) {
	l := ledgerOf(t, "2025-07-08", "2025-07-09", "2025-07-10")
	today := day(t, "2025-07-10")
	first := progress.ComputeStreak(l, today)
	second := progress.ComputeStreak(l, today)
	if first != second {
		t.Errorf("same inputs gave %+v then %+v", first, second)
	}
	if l.Len() != 3 {
		t.Error("ComputeStreak must not modify the ledger")
	}
}

func TestMultiplierFor(t *testing.T) {
	tests := []struct {
		streak int
		want   float64
	}{
		{0, 1.0}, {3, 1.0}, {6, 1.0},
		{7, 1.2}, {13, 1.2},
		{14, 1.5}, {29, 1.5},
		{30, 2.0}, {365, 2.0},
	}
	for _, tt := range tests {
		if got := progress.MultiplierFor(tt.streak); got != tt.want {
			t.Errorf("MultiplierFor(%d) = %v, want %v", tt.streak, got, tt.want)
		}
	}
}

func TestMultiplier_Monotonic(t *testing.T) {
	prev := progress.MultiplierFor(0)
	for s := 1; s <= 400; s++ {
		m := progress.MultiplierFor(s)
		if m < prev {
			t.Fatalf("multiplier decreased at streak %d: %v < %v", s, m, prev)
		}
		prev = m
	}
}

func TestTiers_ExhaustiveAndDisjoint(t *testing.T) {
	tiers := progress.Tiers()
	for s := 0; s <= 400; s++ {
		matches := 0
		for _, tier := range tiers {
			if tier.Contains(s) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("streak %d matches %d tiers, want exactly 1", s, matches)
		}
	}
	if progress.TierFor(30).Name != "Mythic" {
		t.Errorf("30 should be Mythic, got %s", progress.TierFor(30).Name)
	}
	if progress.TierFor(-1).Name != tiers[0].Name {
		t.Error("negative streak should fall into the first tier")
	}
}
