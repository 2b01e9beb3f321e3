package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "api",
		Short: "Ethereum history aggregation API",
		Long: "Serves the Ethereum protocol timeline, the EIP index and live block data, " +
			"aggregated from GitHub, ethresear.ch and a JSON-RPC node.",
		SilenceUsage: true,
		// no subcommand means serve
		RunE: runServe,
	}
	root.PersistentFlags().String("config", "", "path to a JSON config file (default ./config.json)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "start the HTTP API",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "version",
			Short: "print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "version:", version)
				fmt.Fprintln(cmd.OutOrStdout(), "build time:", buildTime)
			},
		},
		newBlockAtCmd(),
		newBlockTimeCmd(),
	)
	return root
}
