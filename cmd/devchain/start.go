package main

import (
	"context"
	"strconv"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/node"

	"github.com/spf13/cobra"
)

var (
	startAccounts string
	startPort     int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chain with accounts from a file",
	Long: `Reads the account mapping from the accounts file (node.accounts_file,
./config/accounts.json by default) and starts the chain on the configured port.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if err := applyStartFlags(cmd, &cfg.Node); err != nil {
			return err
		}

		n := node.NewNode(&cfg.Node, logger, node.WithExplorer(cfg.Explorer))
		return serve(cmd.Context(), n, func(ctx context.Context) error {
			return n.StartFromFile(ctx, cfg.Node.AccountsFile)
		})
	},
}

// applyStartFlags copies the flags the user set over the loaded config.
func applyStartFlags(cmd *cobra.Command, cfg *node.Config) error {
	if cmd.Flags().Changed("accounts") {
		cfg.AccountsFile = startAccounts
	}
	if cmd.Flags().Changed("port") {
		port, err := accounts.ParsePort(strconv.Itoa(startPort))
		if err != nil {
			return err
		}
		cfg.Port = port
	}
	return nil
}

func init() {
	RootCmd.AddCommand(startCmd)

	startCmd.Flags().StringVar(&startAccounts, "accounts", accounts.DefaultPath, "account mapping file")
	startCmd.Flags().IntVar(&startPort, "port", 8545, "JSON-RPC port (0 picks a free one)")
}
