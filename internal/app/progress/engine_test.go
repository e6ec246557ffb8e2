package progress_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/points"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/sqlite"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var testNow = time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)

func testCatalog() progress.Catalog {
	return progress.Catalog{
		Achievements: []domain.ProgressItem{
			{ID: "first_task", Metric: domain.MetricTasksCompleted, MaxProgress: 1, Reward: domain.Reward{Points: 25}},
			{ID: "tasks_3", Metric: domain.MetricTasksCompleted, MaxProgress: 3, Reward: domain.Reward{Points: 100}},
			{ID: "streak_2", Metric: domain.MetricStreakDays, MaxProgress: 2, Reward: domain.Reward{Points: 40}},
			{ID: "first_focus", Metric: domain.MetricSessionsCompleted, MaxProgress: 1, Reward: domain.Reward{Points: 50}},
		},
	}
}

func testEngine(t *testing.T, catalog progress.Catalog) (*progress.Engine, *points.Service) {
	t.Helper()
	db := testDB(t)
	pts := points.NewService(db)
	clock := func() time.Time { return testNow }
	return progress.NewEngine(db, pts, progress.WithCatalog(catalog), progress.WithClock(clock)), pts
}

func balance(t *testing.T, pts *points.Service, user string) int64 {
	t.Helper()
	b, err := pts.Balance(user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger & Bonus
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_RecordDayAndStreak(t *testing.T) {
	e, _ := testEngine(t, testCatalog())
	for _, d := range []string{"2025-07-01", "2025-07-02", "2025-07-03"} {
		added, err := e.RecordDay("alice", day(t, d))
		if err != nil || !added {
			t.Fatalf("record %s: added=%v err=%v", d, added, err)
		}
	}
	if added, _ := e.RecordDay("alice", day(t, "2025-07-02")); added {
		t.Error("re-recording a day should report false")
	}

	snap, err := e.Streak("alice", day(t, "2025-07-03"))
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if snap.Current != 3 || snap.Longest != 3 {
		t.Errorf("snapshot = %+v", snap)
	}
	if other, _ := e.Streak("bob", day(t, "2025-07-03")); other.Current != 0 {
		t.Errorf("streaks leaked across users: %+v", other)
	}
}

func TestEngine_ClaimBonusIdempotent(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	for _, d := range []string{"2025-07-01", "2025-07-02", "2025-07-03"} {
		_, _ = e.RecordDay("alice", day(t, d))
	}
	today := day(t, "2025-07-03")

	ok, _, err := e.BonusAvailable("alice", today)
	if err != nil || !ok {
		t.Fatalf("bonus should be available: ok=%v err=%v", ok, err)
	}

	res, err := e.ClaimBonus("alice", today)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.Granted || res.PointsGranted != 50 {
		t.Fatalf("expected 50 point grant, got %+v", res)
	}

	again, err := e.ClaimBonus("alice", today)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.Granted || again.Reason != domain.RejectAlreadyClaimed {
		t.Errorf("replay should be already_claimed, got %+v", again)
	}
	if got := balance(t, pts, "alice"); got != 50 {
		t.Errorf("balance = %d, want 50", got)
	}

	st, _ := e.BonusState("alice")
	if st.LastClaimedStreak != 3 {
		t.Errorf("last claimed = %d, want 3", st.LastClaimedStreak)
	}
}

func TestEngine_AdoptClaim(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	res := domain.ClaimResult{
		Granted: true, Streak: 7, PointsGranted: 100,
		State: domain.BonusClaimState{LastClaimedStreak: 7},
	}
	if err := e.AdoptClaim("alice", res); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if err := e.AdoptClaim("alice", res); err != nil {
		t.Fatalf("adopt replay: %v", err)
	}
	if got := balance(t, pts, "alice"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
	st, _ := e.BonusState("alice")
	if st.LastClaimedStreak != 7 {
		t.Errorf("last claimed = %d, want 7", st.LastClaimedStreak)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Sessions
// ═══════════════════════════════════════════════════════════════════════════

func completedSession(t *testing.T) domain.FocusSession {
	t.Helper()
	s, err := progress.NewSession("alice", domain.SessionPomodoro, 25, 1.0)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	_ = progress.StartSession(&s, testNow)
	_ = progress.CompleteSession(&s, testNow.Add(25*time.Minute))
	return s
}

func TestEngine_SubmitSession(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	s := completedSession(t)
	outcome := domain.SessionOutcome{TasksCompleted: 2, Interruptions: 1, FocusRating: 9}

	res, err := e.SubmitSession("alice", s, outcome, day(t, "2025-07-02"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Breakdown.Total != 280 {
		t.Errorf("total = %d, want 280", res.Breakdown.Total)
	}
	if res.Duplicate {
		t.Error("first submission is not a duplicate")
	}
	// 280 session + 50 first_focus reward.
	if got := balance(t, pts, "alice"); got != 330 {
		t.Errorf("balance = %d, want 330", got)
	}

	again, err := e.SubmitSession("alice", s, outcome, day(t, "2025-07-02"))
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !again.Duplicate || again.Breakdown.Total != 280 {
		t.Errorf("resubmit = %+v", again)
	}
	if got := balance(t, pts, "alice"); got != 330 {
		t.Errorf("resubmit changed balance to %d", got)
	}

	l, _ := e.Ledger("alice")
	if !l.Has(day(t, "2025-07-02")) {
		t.Error("session should record the completion day")
	}
}

func TestEngine_SubmitSessionUsesStreakMultiplier(t *testing.T) {
	e, _ := testEngine(t, testCatalog())
	start := day(t, "2025-06-26")
	for i := 0; i < 7; i++ {
		_, _ = e.RecordDay("alice", start.AddDays(i))
	}
	res, err := e.SubmitSession("alice", completedSession(t),
		domain.SessionOutcome{TasksCompleted: 2, Interruptions: 1, FocusRating: 9}, day(t, "2025-07-02"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Breakdown.MultiplierApplied != 1.2 || res.Breakdown.Total != 336 {
		t.Errorf("breakdown = %+v, want 1.2 → 336", res.Breakdown)
	}
}

func TestEngine_SubmitSessionNotCompleted(t *testing.T) {
	e, _ := testEngine(t, testCatalog())
	s, _ := progress.NewSession("alice", domain.SessionPomodoro, 25, 1.0)
	_ = progress.StartSession(&s, testNow)

	_, err := e.SubmitSession("alice", s, domain.SessionOutcome{}, day(t, "2025-07-02"))
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.Action != "submit" {
		t.Errorf("expected submit TransitionError, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Activity Feed & Items
// ═══════════════════════════════════════════════════════════════════════════

func TestEngine_ApplyEvents(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	ev := domain.ActivityEvent{
		ID: "e1", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-01"),
		Payload: domain.EventPayload{Count: 2},
	}

	res, err := e.Apply("alice", ev)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !res.DayAdded || res.Streak.Current != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := balance(t, pts, "alice"); got != 25 {
		t.Errorf("balance = %d, want 25 (first_task)", got)
	}

	dup, err := e.Apply("alice", ev)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !dup.Duplicate || len(dup.Progress) != 0 {
		t.Errorf("replay should be a no-op duplicate, got %+v", dup)
	}

	_, err = e.Apply("alice", domain.ActivityEvent{
		ID: "e2", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-02"),
	})
	if err != nil {
		t.Fatalf("apply e2: %v", err)
	}
	// 25 + tasks_3 (100) + streak_2 (40).
	if got := balance(t, pts, "alice"); got != 165 {
		t.Errorf("balance = %d, want 165", got)
	}

	items, err := e.Items("alice")
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	for _, it := range items {
		if it.ID == "tasks_3" && (it.Progress != 3 || !it.Unlocked) {
			t.Errorf("tasks_3 = %+v", it)
		}
	}
}

func TestEngine_ApplyRejectsBadEvents(t *testing.T) {
	e, _ := testEngine(t, testCatalog())
	tests := map[string]domain.ActivityEvent{
		"no id":          {Type: domain.EventTaskCompleted, Day: day(t, "2025-07-01")},
		"no day":         {ID: "x1", Type: domain.EventTaskCompleted},
		"negative count": {ID: "x2", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-01"), Payload: domain.EventPayload{Count: -1}},
		"unknown type":   {ID: "x3", Type: "meditated", Day: day(t, "2025-07-01")},
	}
	for name, ev := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := e.Apply("alice", ev); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("got %v, want invalid input", err)
			}
		})
	}
	if _, err := e.Apply("", domain.ActivityEvent{ID: "x"}); !errors.Is(err, domain.ErrUnknownUser) {
		t.Errorf("empty user: got %v", err)
	}
}

func TestEngine_ExpiredChallengeNoReward(t *testing.T) {
	catalog := progress.Catalog{
		Challenges: []progress.ChallengeTemplate{
			{ID: "weekly_task", Metric: domain.MetricTasksCompleted, Target: 1, Reward: domain.Reward{Points: 120}},
		},
		PerWeek: 1,
	}
	e, pts := testEngine(t, catalog)
	if _, err := e.Items("alice"); err != nil {
		t.Fatalf("seed items: %v", err)
	}

	late := time.Date(2025, 7, 8, 9, 0, 0, 0, time.UTC)
	res, err := e.Apply("alice", domain.ActivityEvent{
		ID: "late", Type: domain.EventTaskCompleted, Day: domain.DayOf(late), At: late,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Progress) != 1 {
		t.Fatalf("expected one status, got %d", len(res.Progress))
	}
	st := res.Progress[0]
	if !st.Expired || st.RewardEligible {
		t.Errorf("expired challenge status = %+v", st)
	}
	if got := balance(t, pts, "alice"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestEngine_Bump(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	if _, err := e.Bump("alice", "nope", 1, "", time.Time{}); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("unknown item: got %v", err)
	}

	st, err := e.Bump("alice", "tasks_3", 3, "b1", time.Time{})
	if err != nil {
		t.Fatalf("bump: %v", err)
	}
	if !st.JustUnlocked || !st.RewardEligible {
		t.Errorf("status = %+v", st)
	}
	if _, err := e.Bump("alice", "tasks_3", 3, "b1", time.Time{}); err != nil {
		t.Fatalf("bump replay: %v", err)
	}
	if got := balance(t, pts, "alice"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}

	st, _ = e.Bump("alice", "tasks_3", -2, "b2", time.Time{})
	if !st.Item.Unlocked || st.Item.Progress != 1 {
		t.Errorf("sticky unlock broken: %+v", st.Item)
	}
}

func TestEngine_Reset(t *testing.T) {
	e, pts := testEngine(t, testCatalog())
	_, _ = e.Apply("alice", domain.ActivityEvent{ID: "e1", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-02")})
	_, _ = e.Apply("bob", domain.ActivityEvent{ID: "e1", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-02")})

	if err := e.Reset("alice"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := balance(t, pts, "alice"); got != 0 {
		t.Errorf("balance = %d after reset", got)
	}
	l, _ := e.Ledger("alice")
	if l.Len() != 0 {
		t.Errorf("ledger has %d days after reset", l.Len())
	}
	items, _ := e.Items("alice")
	for _, it := range items {
		if it.Unlocked || it.Progress != 0 {
			t.Errorf("item %s not reset: %+v", it.ID, it)
		}
	}
	if got := balance(t, pts, "bob"); got != 25 {
		t.Errorf("other user affected by reset: balance %d", got)
	}

	// After a reset the same event id counts again.
	res, _ := e.Apply("alice", domain.ActivityEvent{ID: "e1", Type: domain.EventTaskCompleted, Day: day(t, "2025-07-02")})
	if res.Duplicate {
		t.Error("reset should clear the replay window")
	}
}
