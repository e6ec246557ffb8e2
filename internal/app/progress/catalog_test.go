package progress_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	c := progress.DefaultCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if len(c.Achievements) == 0 || len(c.Challenges) < c.PerWeek {
		t.Errorf("default catalog too small: %d achievements, %d challenges", len(c.Achievements), len(c.Challenges))
	}
}

func TestLoadCatalog(t *testing.T) {
	js := `{
		"achievements": [
			{"id": "first_task", "name": "First", "metric": "tasks_completed", "max_progress": 1, "reward": {"points": 25}}
		],
		"challenges": [
			{"id": "weekly_tasks", "name": "Tasks", "metric": "tasks_completed", "target": 10, "reward": {"points": 100}}
		],
		"per_week": 1
	}`
	c, err := progress.LoadCatalog(strings.NewReader(js))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	items := c.ItemsFor(time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC))
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Kind != domain.KindAchievement {
		t.Errorf("achievement kind not set: %q", items[0].Kind)
	}
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"achievements": [`,
		"duplicate id":   `{"achievements": [{"id":"a","max_progress":1},{"id":"a","max_progress":2}]}`,
		"zero target":    `{"challenges": [{"id":"c","target":0}]}`,
		"zero max":       `{"achievements": [{"id":"a","max_progress":0}]}`,
		"negative count": `{"per_week": -1}`,
	}
	for name, js := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := progress.LoadCatalog(strings.NewReader(js)); err == nil {
				t.Error("expected error")
			}
		})
	}
	_, err := progress.LoadCatalog(strings.NewReader(`{"per_week": -1}`))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("validation error should wrap ErrInvalidInput, got %v", err)
	}
}

func TestWeeklyChallenges_DeterministicPerWeek(t *testing.T) {
	c := progress.DefaultCatalog()
	wed := time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)
	sat := time.Date(2025, 7, 5, 22, 0, 0, 0, time.UTC)

	a := c.WeeklyChallenges(wed)
	b := c.WeeklyChallenges(sat)
	if len(a) != c.PerWeek {
		t.Fatalf("expected %d challenges, got %d", c.PerWeek, len(a))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("same week drew %s and %s", a[i].ID, b[i].ID)
		}
		if !strings.HasSuffix(a[i].ID, "-2025-W27") {
			t.Errorf("challenge id %s missing week suffix", a[i].ID)
		}
		want := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
		if !a[i].Deadline.Equal(want) {
			t.Errorf("deadline = %v, want %v", a[i].Deadline, want)
		}
		if a[i].Kind != domain.KindChallenge {
			t.Errorf("kind = %s", a[i].Kind)
		}
	}

	next := c.WeeklyChallenges(wed.AddDate(0, 0, 7))
	if next[0].ID == a[0].ID {
		t.Error("next week should get fresh challenge ids")
	}
}

func TestWeeklyChallenges_DistinctMetrics(t *testing.T) {
	c := progress.DefaultCatalog()
	seen := make(map[domain.Metric]bool)
	for _, ch := range c.WeeklyChallenges(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)) {
		if seen[ch.Metric] {
			t.Errorf("metric %s drawn twice", ch.Metric)
		}
		seen[ch.Metric] = true
	}
}
