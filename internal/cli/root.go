// Package cli implements the focus command-line interface using Cobra.
// Each subcommand maps to one engine operation (streak, claim, score, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssaritan18/Project-1-sub000/internal/daemon"
)

var rootCmd = &cobra.Command{
	Use:   "focus",
	Short: "focus: streaks, points and achievements for focus sessions",
	Long: `focus tracks qualifying activity days, streak bonuses, focus session
points and achievement/challenge progress.

Works offline against a local store; when a remote authority is configured,
its answers win and offline writes are replayed once it is reachable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var flagUser string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "User id (overrides config)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	daemon.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
