package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record [DAY]",
	Short: "Record a day with qualifying activity (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	var raw string
	if len(args) == 1 {
		raw = args[0]
	}
	day, err := dayArg(d, raw)
	if err != nil {
		return err
	}

	res, err := d.Reconciler.RecordDay(context.Background(), d.User(), day)
	if err != nil {
		return err
	}
	if res.Value {
		fmt.Printf("Recorded %s%s\n", day, syncNote(res.Unsynced))
	} else {
		fmt.Printf("%s was already recorded\n", day)
	}
	return nil
}
