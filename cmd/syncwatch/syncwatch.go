package main

import (
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/syncwatch/syncwatch/cmd"
)

var (
	Version    = "dev"
	CommitHash = "unknown"
)

func main() {
	cmd.SetVersion(Version, CommitHash)
	if err := cmd.NewRootCmd().Execute(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "Error:", e)
		}
		os.Exit(1)
	}
}
