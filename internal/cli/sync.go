package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "pending", false, "Only list queued operations")
	rootCmd.AddCommand(syncCmd)
}

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay offline writes to the remote authority",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	if !syncDryRun {
		if !d.Reconciler.Remote() {
			fmt.Println("No remote authority configured. Set [remote] in config.toml or FOCUS_REMOTE_URL.")
			return nil
		}
		rep, err := d.Reconciler.Replay(context.Background(), d.User())
		if err != nil {
			return err
		}
		fmt.Printf("Delivered %d, dropped %d, still queued %d\n", rep.Delivered, rep.Dropped, rep.Pending)
	}

	pending, err := d.Reconciler.Pending(d.User())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("Nothing queued.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tKEY\tQUEUED\tATTEMPTS\tLAST ERROR")
	for _, e := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.Op.Kind,
			e.Op.IdempotencyKey,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Attempts,
			e.LastError,
		)
	}
	return w.Flush()
}
