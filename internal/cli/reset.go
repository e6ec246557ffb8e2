package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase all local progress for the user",
	Long: `Erase the completion ledger, bonus claims, points and unsynced writes,
and return every achievement and challenge to locked with zero progress.`,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("reset erases all progress; rerun with --yes to confirm")
	}

	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Reconciler.Reset(d.User()); err != nil {
		return err
	}
	fmt.Printf("Reset all progress for %s\n", d.User())
	return nil
}
