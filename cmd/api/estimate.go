package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eth_history_api/internal/blocktime"
)

func newBlockAtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block-at <unix-timestamp>",
		Short: "estimate the mainnet block produced at a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid timestamp %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n",
				blocktime.TimestampToBlock(ts), confidence(blocktime.IsExact(ts)))
			return nil
		},
	}
}

func newBlockTimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block-time <block>",
		Short: "estimate the unix timestamp of a mainnet block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block number %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n",
				blocktime.BlockToTimestamp(block), confidence(block >= blocktime.MergeBlock))
			return nil
		},
	}
}

func confidence(exact bool) string {
	if exact {
		return "exact"
	}
	return "approximate"
}
