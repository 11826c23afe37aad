package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncwatch/syncwatch/config"
)

func SetVersion(version, commit string) {
	config.SetBuildInfo(version, commit)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the syncwatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "syncwatch %s (%s)\n", config.Version, config.CommitHash)
		},
	}
}
