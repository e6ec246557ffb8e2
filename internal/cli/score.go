package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func init() {
	scoreCmd.Flags().IntVar(&scoreTasks, "tasks", 0, "Tasks completed during the session")
	scoreCmd.Flags().IntVar(&scoreInterruptions, "interruptions", 0, "Interruptions logged")
	scoreCmd.Flags().IntVar(&scoreFocus, "focus", 0, "Focus rating 0-10")
	scoreCmd.Flags().Float64Var(&scoreMultiplier, "multiplier", 1.0, "Streak multiplier")
	rootCmd.AddCommand(scoreCmd)
}

var (
	scoreTasks         int
	scoreInterruptions int
	scoreFocus         int
	scoreMultiplier    float64
)

var scoreCmd = &cobra.Command{
	Use:   "score TYPE",
	Short: "Compute the points of a session (pomodoro, deep_work, adhd_sprint)",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	typ, err := domain.ParseSessionType(args[0])
	if err != nil {
		return err
	}
	b, err := progress.ScoreSession(typ, scoreTasks, scoreInterruptions, scoreFocus, scoreMultiplier)
	if err != nil {
		return err
	}

	fmt.Printf("Base:          %5d\n", b.BasePoints)
	fmt.Printf("Tasks:        +%5d\n", b.TaskBonus)
	fmt.Printf("Focus:        +%5d\n", b.FocusBonus)
	fmt.Printf("Interruptions: -%4d\n", b.InterruptionPenalty)
	fmt.Printf("Subtotal:      %5d\n", b.Subtotal)
	fmt.Printf("Multiplier:    x%.2f\n", b.MultiplierApplied)
	fmt.Printf("Total:         %5d\n", b.Total)
	return nil
}
