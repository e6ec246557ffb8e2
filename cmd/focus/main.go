// Package main is the single-binary entrypoint for focus.
// focus turns daily activity into streaks, points and achievements.
package main

import "github.com/ssaritan18/Project-1-sub000/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
