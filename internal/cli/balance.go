package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	balanceCmd.Flags().IntVar(&balanceLimit, "limit", 10, "How many recent grants to show")
	rootCmd.AddCommand(balanceCmd)
}

var balanceLimit int

var balanceCmd = &cobra.Command{
	Use:     "balance",
	Aliases: []string{"points"},
	Short:   "Show the points balance and recent grants",
	RunE:    runBalance,
}

func runBalance(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	balance, err := d.Points.Balance(d.User())
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %d points\n", balance)

	history, err := d.Points.History(d.User(), balanceLimit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSOURCE\tPOINTS\tREASON")
	for _, e := range history {
		fmt.Fprintf(w, "%s\t%s\t%+d\t%s\n",
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Source,
			e.Amount,
			e.Reason,
		)
	}
	return w.Flush()
}
