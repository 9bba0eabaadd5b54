package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Siasom1/devchain/accounts"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	transferRPC     string
	transferKey     string
	transferWallet  string
	transferPass    string
	transferTo      string
	transferValue   string
	transferTimeout time.Duration
)

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send value from a seeded account to an address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if !common.IsHexAddress(transferTo) {
			return fmt.Errorf("invalid recipient %q", transferTo)
		}
		value, ok := math.ParseBig256(transferValue)
		if !ok || value.Sign() < 0 {
			return fmt.Errorf("invalid value %q", transferValue)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), transferTimeout)
		defer cancel()

		client, err := ethclient.DialContext(ctx, transferRPC)
		if err != nil {
			return err
		}
		defer client.Close()

		key, err := senderKey(transferKey, transferWallet, transferPass)
		if err != nil {
			return err
		}

		receipt, err := sendTransfer(ctx, client, key, common.HexToAddress(transferTo), value)
		if err != nil {
			return err
		}

		logger.Info("transfer mined",
			zap.String("tx", receipt.TxHash.Hex()),
			zap.Uint64("block", receipt.BlockNumber.Uint64()),
			zap.Uint64("status", receipt.Status),
			zap.Uint64("gas_used", receipt.GasUsed),
		)
		return nil
	},
}

// txBackend is the part of ethclient.Client a transfer needs.
type txBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// senderKey takes the key from --key, or decrypts it from --wallet.
func senderKey(hexKey, wallet, pass string) (*ecdsa.PrivateKey, error) {
	switch {
	case hexKey != "" && wallet != "":
		return nil, errors.New("use either --key or --wallet")
	case wallet != "":
		return accounts.OpenWallet(wallet, pass)
	case hexKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		return key, nil
	default:
		return nil, errors.New("one of --key or --wallet is required")
	}
}

// sendTransfer signs a plain value transfer with key, sends it and waits for
// its receipt.
func sendTransfer(ctx context.Context, client txBackend, key *ecdsa.PrivateKey, to common.Address, value *big.Int) (*types.Receipt, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, to, value, 21000, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, err
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	return waitMined(ctx, client, signed.Hash())
}

// waitMined polls for the receipt until ctx ends. Right after startup the
// node answers "transaction indexing is in progress" rather than NotFound,
// so every error is retried.
func waitMined(ctx context.Context, client txBackend, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w (last error: %v)", hash.Hex(), ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

func init() {
	RootCmd.AddCommand(transferCmd)

	transferCmd.Flags().StringVar(&transferRPC, "rpc", "http://127.0.0.1:8545", "JSON-RPC endpoint")
	transferCmd.Flags().StringVar(&transferKey, "key", "", "sender private key (hex)")
	transferCmd.Flags().StringVar(&transferWallet, "wallet", "", "sender wallet file written by generate --wallet-dir")
	transferCmd.Flags().StringVar(&transferPass, "passphrase", "", "passphrase of the wallet file")
	transferCmd.Flags().StringVar(&transferTo, "to", "", "recipient address")
	transferCmd.Flags().StringVar(&transferValue, "value", "1000000000000000000", "amount in wei")
	transferCmd.Flags().DurationVar(&transferTimeout, "timeout", 30*time.Second, "how long to wait for the receipt")

	_ = transferCmd.MarkFlagRequired("to")
}
