package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ssaritan18/Project-1-sub000/internal/daemon"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// openDaemon loads the config, applies global flags and wires the daemon.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagUser != "" {
		cfg.Profile.User = flagUser
	}
	return daemon.NewWithConfig(cfg)
}

// dayArg parses an optional YYYY-MM-DD, defaulting to today.
func dayArg(d *daemon.Daemon, raw string) (domain.CompletionDay, error) {
	if raw == "" {
		return d.Today(), nil
	}
	return domain.ParseDay(raw)
}

// syncNote describes where a reconciled result came from.
func syncNote(unsynced bool) string {
	if unsynced {
		return " (offline: computed locally, will sync later)"
	}
	return ""
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
