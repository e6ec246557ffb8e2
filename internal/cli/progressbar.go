package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// Terminal rendering of one achievement or challenge.
// Shows: [=============>................]  42% │ 21/50 │ Deep Diver

const barWidth = 30 // Characters for the progress bar

// renderBar draws a fixed-width bar for pct in [0, 100].
func renderBar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	// Build the bar: [=======>............]
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	switch {
	case filled == barWidth:
		return "[" + strings.Repeat("=", filled) + "]"
	case filled > 0:
		return "[" + strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty) + "]"
	default:
		return "[" + strings.Repeat(".", barWidth) + "]"
	}
}

// itemLine renders one progress item as a single terminal line.
func itemLine(it domain.ProgressItem, now time.Time) string {
	var status string
	switch {
	case it.Unlocked && it.IsExpired(now):
		status = "[done, expired]"
	case it.Unlocked:
		status = "[unlocked]"
	case it.IsExpired(now):
		status = "[expired]"
	case it.Kind == domain.KindChallenge && !it.Deadline.IsZero():
		status = "ends " + formatRemaining(it.Deadline.Sub(now))
	}

	return fmt.Sprintf("%s %3.0f%% | %d/%d | %s %s",
		renderBar(it.ProgressPct()), it.ProgressPct(), it.Progress, it.MaxProgress, it.Name, status)
}

// formatRemaining renders a positive duration as "in 3d4h" / "in 2h15m".
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	hours := int(d.Hours())
	if hours >= 24 {
		return fmt.Sprintf("in %dd%dh", hours/24, hours%24)
	}
	if hours >= 1 {
		return fmt.Sprintf("in %dh%dm", hours, int(d.Minutes())%60)
	}
	return fmt.Sprintf("in %dm", int(d.Minutes()))
}
