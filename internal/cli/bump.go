package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	bumpCmd.Flags().StringVar(&bumpEvent, "event", "", "Stable event id; repeating it never counts twice (required)")
	_ = bumpCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(bumpCmd)
}

var bumpEvent string

var bumpCmd = &cobra.Command{
	Use:   "bump ITEM DELTA",
	Short: "Advance an achievement or challenge by DELTA",
	Args:  cobra.ExactArgs(2),
	RunE:  runBump,
}

func runBump(cmd *cobra.Command, args []string) error {
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("delta must be an integer: %w", err)
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Reconciler.Bump(context.Background(), d.User(), args[0], delta, bumpEvent, time.Time{})
	if err != nil {
		return err
	}

	st := res.Value
	fmt.Println(itemLine(st.Item, time.Now()) + syncNote(res.Unsynced))
	switch {
	case st.JustUnlocked && st.RewardEligible:
		fmt.Printf("Unlocked! +%d points\n", st.Item.Reward.Points)
	case st.JustUnlocked:
		fmt.Println("Completed after the deadline, no reward")
	case st.Expired:
		fmt.Println("This challenge has expired")
	}
	return nil
}
