package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/Siasom1/devchain/accounts"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	generateOut     string
	generateBalance string
	generateForce   bool
	generateWallets string
	generatePass    string
)

var generateCmd = &cobra.Command{
	Use:   "generate [names...]",
	Short: "Write an accounts file with freshly generated keys",
	Long: `Creates one account per name (meca_dao, meca_tower, meca_host, meca_user
and meca_task when none are given) with a random private key and writes them
to the accounts file in the format start reads.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		names := args
		if len(names) == 0 {
			names = accounts.DefaultNames
		}

		out := cfg.Node.AccountsFile
		if cmd.Flags().Changed("out") {
			out = generateOut
		}
		if !generateForce {
			if _, err := os.Stat(out); err == nil {
				return fmt.Errorf("%s already exists, use --force to overwrite", out)
			}
		}

		if generateWallets != "" && generatePass == "" {
			return fmt.Errorf("--passphrase is required with --wallet-dir")
		}

		balance, err := balanceToken(generateBalance)
		if err != nil {
			return err
		}

		m, err := accounts.Generate(names, balance)
		if err != nil {
			return err
		}
		if err := accounts.WriteFile(out, m); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		if generateWallets != "" {
			paths, err := accounts.WriteWallets(generateWallets, m, generatePass)
			if err != nil {
				return fmt.Errorf("write wallets: %w", err)
			}
			logger.Info("wallet files written", zap.String("dir", generateWallets), zap.Int("wallets", len(paths)))
		}

		for _, e := range m {
			logger.Info("generated account",
				zap.String("name", e.ID),
				zap.String("address", e.Record.Address),
			)
		}
		logger.Info("accounts file written", zap.String("path", out), zap.Int("accounts", len(m)))
		return nil
	},
}

// balanceToken keeps decimal balances as JSON numbers and everything else
// (hex) as strings.
func balanceToken(s string) (accounts.Balance, error) {
	var b accounts.Balance
	if _, ok := new(big.Int).SetString(s, 10); ok {
		b = accounts.Balance(s)
	} else {
		b = accounts.StringBalance(s)
	}

	v, err := b.BigInt()
	if err != nil {
		return nil, err
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative balance %s", s)
	}
	return b, nil
}

func init() {
	RootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateOut, "out", accounts.DefaultPath, "file to write")
	generateCmd.Flags().StringVar(&generateBalance, "balance", "1000000000000000000000", "balance of every account in wei")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "overwrite an existing file")
	generateCmd.Flags().StringVar(&generateWallets, "wallet-dir", "", "also write an encrypted wallet file per account here")
	generateCmd.Flags().StringVar(&generatePass, "passphrase", "", "passphrase for the wallet files")
}
