package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/events"
	"github.com/Siasom1/devchain/explorer"
	"github.com/Siasom1/devchain/miner"
	"github.com/Siasom1/devchain/simulator"
	"github.com/Siasom1/devchain/state"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("node already started")

// Option configures optional node components.
type Option func(*Node)

// WithExplorer serves the explorer API when cfg.Enabled is set.
func WithExplorer(cfg explorer.Config) Option {
	return func(n *Node) {
		n.explorerCfg = cfg
	}
}

type Node struct {
	Config *Config
	Logger *zap.Logger

	Server      *simulator.Server
	Store       *state.State
	Events      *events.EventBus
	Miner       *miner.Miner
	ExplorerAPI *explorer.ExplorerAPI

	explorerCfg explorer.Config
	started     *atomic.Bool
}

func NewNode(cfg *Config, logger *zap.Logger, opts ...Option) *Node {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Node{
		Config:  cfg,
		Logger:  logger,
		started: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// StartFromFile loads the account mapping from path and starts the node with
// it. Nothing is started when the file cannot be loaded.
func (n *Node) StartFromFile(ctx context.Context, path string) error {
	if path == "" {
		path = n.Config.AccountsFile
	}

	mapping, err := accounts.LoadFile(path)
	if err != nil {
		return err
	}

	n.Logger.Info("loaded accounts file", zap.String("path", path), zap.Int("entries", mapping.Len()))
	return n.Start(ctx, mapping)
}

// Start seeds the simulated chain with the mapping's accounts and binds its
// JSON-RPC endpoint to Config.Port. On success it logs the bound port and
// asks the chain for eth_accounts.
func (n *Node) Start(ctx context.Context, mapping accounts.Mapping) (err error) {
	if !n.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer func() {
		if err != nil {
			n.Stop()
		}
	}()

	n.Logger.Info("account entries", zap.Any("entries", mapping))

	list := accounts.Transform(mapping)
	n.Logger.Info("transformed accounts", zap.Any("accounts", list))

	n.Events = events.NewEventBus()

	n.Store, err = state.NewState()
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	n.Server = simulator.NewServer(simulator.Options{
		Wallet: simulator.WalletOptions{Accounts: list},
		Chain: simulator.ChainOptions{
			Host:     n.Config.Host,
			ChainID:  n.Config.ChainID,
			GasLimit: n.Config.GasLimit,
		},
	}, n.Logger)

	if err := n.Server.Listen(ctx, n.Config.Port); err != nil {
		return fmt.Errorf("start simulator: %w", err)
	}
	n.Logger.Info("listening", zap.Int("port", n.Server.Port()), zap.String("rpc", n.Server.Endpoint()))

	result, err := n.Server.Provider().Request(ctx, "eth_accounts")
	if err != nil {
		return fmt.Errorf("eth_accounts: %w", err)
	}
	n.Logger.Debug("eth_accounts", zap.ByteString("result", result))

	for i, acc := range n.Server.Accounts() {
		rec := &state.Account{
			Index:     i,
			Address:   acc.Address,
			SecretKey: acc.SecretKey,
			Balance:   acc.Balance,
		}
		if i < len(mapping) {
			rec.Label = mapping[i].ID
		}
		if err := n.Store.SaveAccount(rec); err != nil {
			return fmt.Errorf("save account %d: %w", i, err)
		}
		n.Logger.Info("seeded account",
			zap.String("label", rec.Label),
			zap.String("address", rec.Address.Hex()),
			zap.String("balance", rec.Balance.String()),
		)
	}

	n.Miner = miner.NewMiner(n.Server, n.Store, n.Events, n.Logger, miner.Config{
		BlockTime:   n.Config.BlockTime,
		EmptyBlocks: n.Config.EmptyBlocks,
	})
	if _, err := n.Miner.Sync(ctx); err != nil {
		return fmt.Errorf("record genesis: %w", err)
	}
	n.Miner.Start()

	if n.explorerCfg.Enabled {
		n.ExplorerAPI = explorer.NewExplorerAPI(n.Server, n.Miner, n.Store, n.Events, n.Logger)
		if _, err := n.ExplorerAPI.Start(n.Config.Host, n.explorerCfg.Port); err != nil {
			return err
		}
	}

	n.Logger.Info("node started")
	return nil
}

// Port returns the bound JSON-RPC port, or 0 when not listening.
func (n *Node) Port() int {
	if n.Server == nil {
		return 0
	}
	return n.Server.Port()
}

// Stop shuts every started component down. It is safe to call more than once.
func (n *Node) Stop() {
	if n.ExplorerAPI != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.ExplorerAPI.Stop(ctx); err != nil {
			n.Logger.Warn("failed to stop explorer", zap.Error(err))
		}
		cancel()
		n.ExplorerAPI = nil
	}
	if n.Miner != nil {
		n.Miner.Stop()
	}
	if n.Server != nil {
		if err := n.Server.Close(); err != nil {
			n.Logger.Warn("failed to stop simulator", zap.Error(err))
		}
	}
	if n.Store != nil {
		if err := n.Store.Close(); err != nil {
			n.Logger.Warn("failed to close state store", zap.Error(err))
		}
		n.Store = nil
	}

	if n.started.CompareAndSwap(true, false) {
		n.Logger.Info("node stopped")
	}
}
