package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func init() {
	sessionCmd.Flags().IntVar(&sessionMinutes, "minutes", 0, "Session length (default: the type's default)")
	sessionCmd.Flags().IntVar(&sessionTasks, "tasks", 0, "Tasks completed during the session")
	sessionCmd.Flags().IntVar(&sessionInterruptions, "interruptions", 0, "Interruptions logged")
	sessionCmd.Flags().IntVar(&sessionFocus, "focus", 0, "Focus rating 0-10")
	rootCmd.AddCommand(sessionCmd)
}

var (
	sessionMinutes       int
	sessionTasks         int
	sessionInterruptions int
	sessionFocus         int
)

var sessionCmd = &cobra.Command{
	Use:   "session TYPE",
	Short: "Log a finished focus session and earn its points",
	Long: `Log a focus session that already ran (pomodoro, deep_work, adhd_sprint).
The session is scored with the current streak multiplier.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseSessionType(args[0])
	if err != nil {
		return err
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	today := d.Today()
	snap, err := d.Engine.Streak(d.User(), today)
	if err != nil {
		return err
	}
	sess, err := d.Sessions.Start(d.User(), typ, sessionMinutes, snap.Multiplier)
	if err != nil {
		return err
	}
	defer d.Sessions.End(d.User(), sess.ID)

	sess, err = d.Sessions.Complete(d.User(), sess.ID)
	if err != nil {
		return err
	}
	outcome := domain.SessionOutcome{
		TasksCompleted: sessionTasks,
		Interruptions:  sessionInterruptions,
		FocusRating:    sessionFocus,
	}
	res, err := d.Reconciler.SubmitSession(context.Background(), d.User(), sess, outcome, today)
	if err != nil {
		return err
	}

	b := res.Value.Breakdown
	fmt.Printf("%s, %d min: +%d points (x%.1f)%s\n",
		typ, sess.DurationMinutes, b.Total, b.MultiplierApplied, syncNote(res.Unsynced))
	for _, st := range res.Value.Progress {
		if st.JustUnlocked && st.RewardEligible {
			fmt.Printf("Unlocked %s! +%d points\n", st.Item.Name, st.Item.Reward.Points)
		}
	}
	return nil
}
