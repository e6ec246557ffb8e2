package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

func init() {
	itemsCmd.Flags().BoolVar(&itemsJSON, "json", false, "Print items as JSON")
	rootCmd.AddCommand(itemsCmd)
}

var itemsJSON bool

var itemsCmd = &cobra.Command{
	Use:     "items",
	Aliases: []string{"achievements"},
	Short:   "List achievements and challenges with progress",
	RunE:    runItems,
}

func runItems(cmd *cobra.Command, args []string) error {
	d, err := openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	items, err := d.Engine.Items(d.User())
	if err != nil {
		return err
	}
	if itemsJSON {
		return printJSON(items)
	}

	now := time.Now()
	for _, kind := range []domain.ItemKind{domain.KindAchievement, domain.KindChallenge} {
		var lines []string
		for _, it := range items {
			if it.Kind == kind {
				lines = append(lines, itemLine(it, now))
			}
		}
		if len(lines) == 0 {
			continue
		}
		if kind == domain.KindAchievement {
			fmt.Println("Achievements")
		} else {
			fmt.Println("\nChallenges")
		}
		for _, l := range lines {
			fmt.Println("  " + l)
		}
	}
	return nil
}
