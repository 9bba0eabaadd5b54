package main

import (
	"context"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/node"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <port> <accounts-json>",
	Short: "Start the chain with accounts given on the command line",
	Example: `  devchain run 8545 '{"alice": {"private_key": "0x...", "balance": "1000000000000000000"}}'
  devchain run 0 '{}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, mapping, err := accounts.ParseArgs(args)
		if err != nil {
			return err
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg.Node.Port = port

		n := node.NewNode(&cfg.Node, logger, node.WithExplorer(cfg.Explorer))
		return serve(cmd.Context(), n, func(ctx context.Context) error {
			return n.Start(ctx, mapping)
		})
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
}
