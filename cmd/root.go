package cmd

import "github.com/spf13/cobra"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "syncwatch",
		Short:         "Track how far indexers have synced the deployments of tracked accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(scanCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}
