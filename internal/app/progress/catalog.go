package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ChallengeTemplate is one entry of the weekly challenge pool.
type ChallengeTemplate struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Metric domain.Metric `json:"metric"`
	Target int           `json:"target"`
	Reward domain.Reward `json:"reward"`
}

// Catalog is the set of items a user can progress on: fixed achievements
// plus a few challenges drawn from the pool each week.
type Catalog struct {
	Achievements []domain.ProgressItem `json:"achievements"`
	Challenges   []ChallengeTemplate   `json:"challenges"`
	PerWeek      int                   `json:"per_week"`
}

// LoadCatalog reads a server-provided catalog from JSON and validates it.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks every achievement and challenge template.
func (c Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, a := range c.Achievements {
		a.Kind = domain.KindAchievement
		if err := ValidateItem(a); err != nil {
			return err
		}
		if seen[a.ID] {
			return domain.Invalid("duplicate catalog id %q", a.ID)
		}
		seen[a.ID] = true
	}
	for _, t := range c.Challenges {
		if t.ID == "" || t.Target <= 0 {
			return domain.Invalid("challenge template %q needs an id and a positive target", t.ID)
		}
		if seen[t.ID] {
			return domain.Invalid("duplicate catalog id %q", t.ID)
		}
		seen[t.ID] = true
	}
	if c.PerWeek < 0 {
		return domain.Invalid("per_week must be non-negative, got %d", c.PerWeek)
	}
	return nil
}

// ItemsFor returns fresh (zero-progress) items for the week containing now:
// every achievement plus the week's challenges.
func (c Catalog) ItemsFor(now time.Time) []domain.ProgressItem {
	items := make([]domain.ProgressItem, 0, len(c.Achievements)+c.PerWeek)
	for _, a := range c.Achievements {
		a.Kind = domain.KindAchievement
		a.Progress = 0
		a.Unlocked = false
		items = append(items, a)
	}
	return append(items, c.WeeklyChallenges(now)...)
}

// WeeklyChallenges draws PerWeek challenges for the week containing now.
// The draw is seeded by the week, so every device produces the same set.
func (c Catalog) WeeklyChallenges(now time.Time) []domain.ProgressItem {
	deadline := nextMonday(now)
	year, week := now.UTC().ISOWeek()
	selected := pickUniqueChallenges(c.Challenges, c.PerWeek, int64(year*100+week))

	out := make([]domain.ProgressItem, 0, len(selected))
	for _, tmpl := range selected {
		out = append(out, domain.ProgressItem{
			ID:          fmt.Sprintf("%s-%d-W%02d", tmpl.ID, year, week),
			Name:        tmpl.Name,
			Kind:        domain.KindChallenge,
			Category:    "weekly",
			Metric:      tmpl.Metric,
			MaxProgress: tmpl.Target,
			Reward:      tmpl.Reward,
			Deadline:    deadline,
		})
	}
	return out
}

// nextMonday returns the next Monday at 00:00 UTC after the given time.
func nextMonday(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	daysUntilMonday := (8 - int(t.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7 // If today is Monday, next Monday
	}
	return t.AddDate(0, 0, daysUntilMonday)
}

// pickUniqueChallenges selects n templates, preferring distinct metrics.
func pickUniqueChallenges(pool []ChallengeTemplate, n int, seed int64) []ChallengeTemplate {
	r := rand.New(rand.NewSource(seed))

	shuffled := make([]ChallengeTemplate, len(pool))
	copy(shuffled, pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seen := make(map[domain.Metric]bool)
	picked := make(map[string]bool)
	var result []ChallengeTemplate
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !seen[tmpl.Metric] {
			seen[tmpl.Metric] = true
			picked[tmpl.ID] = true
			result = append(result, tmpl)
		}
	}

	// Not enough distinct metrics, fill with any
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !picked[tmpl.ID] {
			picked[tmpl.ID] = true
			result = append(result, tmpl)
		}
	}
	return result
}

// ─── Default Catalog ────────────────────────────────────────────────────────

// DefaultCatalog returns the built-in catalog used when no server catalog
// is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		Achievements: defaultAchievements(),
		Challenges:   defaultChallenges(),
		PerWeek:      3,
	}
}

func achievement(id, name, category string, metric domain.Metric, target int, points int64, badge string) domain.ProgressItem {
	return domain.ProgressItem{
		ID: id, Name: name, Kind: domain.KindAchievement, Category: category,
		Metric: metric, MaxProgress: target,
		Reward: domain.Reward{Points: points, Badge: badge},
	}
}

func defaultAchievements() []domain.ProgressItem {
	return []domain.ProgressItem{
		// ── Getting Started ────────────────────────────────────────────
		achievement("first_task", "First Step", "getting_started", domain.MetricTasksCompleted, 1, 25, "🎯"),
		achievement("first_focus", "In The Zone", "getting_started", domain.MetricSessionsCompleted, 1, 50, "⏱️"),
		achievement("first_deep_work", "Deep Diver", "getting_started", domain.MetricDeepWorkSessions, 1, 75, "🌊"),

		// ── Streaks ────────────────────────────────────────────────────
		achievement("streak_3", "Momentum", "streaks", domain.MetricStreakDays, 3, 50, "🔥"),
		achievement("streak_7", "Week Warrior", "streaks", domain.MetricStreakDays, 7, 150, "💪"),
		achievement("streak_30", "Monthly Machine", "streaks", domain.MetricStreakDays, 30, 500, "🏛️"),
		achievement("active_days_14", "Fortnight Force", "streaks", domain.MetricActiveDays, 14, 150, "📅"),

		// ── Productivity ───────────────────────────────────────────────
		achievement("tasks_10", "Task Tamer", "productivity", domain.MetricTasksCompleted, 10, 100, "✅"),
		achievement("tasks_100", "Task Master", "productivity", domain.MetricTasksCompleted, 100, 400, "⚙️"),
		achievement("sessions_25", "Focus Regular", "focus", domain.MetricSessionsCompleted, 25, 250, "🧠"),
		achievement("focus_minutes_600", "Ten Hour Club", "focus", domain.MetricFocusMinutes, 600, 300, "⌛"),
		achievement("deep_work_10", "Flow State", "focus", domain.MetricDeepWorkSessions, 10, 400, "🌀"),
	}
}

func defaultChallenges() []ChallengeTemplate {
	return []ChallengeTemplate{
		{ID: "weekly_tasks_15", Name: "Finish 15 tasks", Metric: domain.MetricTasksCompleted, Target: 15, Reward: domain.Reward{Points: 120}},
		{ID: "weekly_tasks_30", Name: "Finish 30 tasks", Metric: domain.MetricTasksCompleted, Target: 30, Reward: domain.Reward{Points: 220}},
		{ID: "weekly_sessions_5", Name: "Run 5 focus sessions", Metric: domain.MetricSessionsCompleted, Target: 5, Reward: domain.Reward{Points: 120}},
		{ID: "weekly_minutes_180", Name: "Focus for 3 hours", Metric: domain.MetricFocusMinutes, Target: 180, Reward: domain.Reward{Points: 150}},
		{ID: "weekly_deep_work_2", Name: "Two deep work blocks", Metric: domain.MetricDeepWorkSessions, Target: 2, Reward: domain.Reward{Points: 150}},
		{ID: "weekly_streak_5", Name: "Keep a 5-day streak", Metric: domain.MetricStreakDays, Target: 5, Reward: domain.Reward{Points: 100, Badge: "🗓️"}},
	}
}
