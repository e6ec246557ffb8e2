package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
)

func init() {
	streakCmd.Flags().StringVar(&streakToday, "today", "", "Reference day YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(streakCmd)
}

var streakToday string

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the current streak, tier and multiplier",
	RunE:  runStreak,
}

func runStreak(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	today, err := dayArg(d, streakToday)
	if err != nil {
		return err
	}
	res, err := d.Reconciler.Streak(context.Background(), d.User(), today)
	if err != nil {
		return err
	}
	snap := res.Value

	fmt.Printf("Streak:     %d day(s)%s\n", snap.Current, syncNote(res.Unsynced))
	fmt.Printf("Longest:    %d day(s)\n", snap.Longest)
	fmt.Printf("Tier:       %s\n", snap.Tier)
	fmt.Printf("Multiplier: x%.1f\n", snap.Multiplier)

	state, err := d.Engine.BonusState(d.User())
	if err != nil {
		return err
	}
	if progress.IsBonusAvailable(snap.Current, state.LastClaimedStreak) {
		fmt.Printf("Bonus:      %d points available, run 'focus claim'\n", progress.BonusPoints(snap.Current))
	}
	return nil
}
