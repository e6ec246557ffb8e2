package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func init() {
	claimCmd.Flags().StringVar(&claimToday, "today", "", "Reference day YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(claimCmd)
}

var claimToday string

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the streak bonus for the current streak",
	RunE:  runClaim,
}

func runClaim(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	today, err := dayArg(d, claimToday)
	if err != nil {
		return err
	}
	res, err := d.Reconciler.ClaimBonus(context.Background(), d.User(), today)
	if err != nil {
		return err
	}

	claim := res.Value
	switch {
	case claim.Granted:
		fmt.Printf("+%d points for a %d-day streak%s\n", claim.PointsGranted, claim.Streak, syncNote(res.Unsynced))
	case claim.Reason == domain.RejectAlreadyClaimed:
		fmt.Printf("Bonus for a %d-day streak already claimed\n", claim.State.LastClaimedStreak)
	default:
		fmt.Printf("No bonus yet at a %d-day streak, next one every 3 days\n", claim.Streak)
	}
	return nil
}
