package node

import (
	"time"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/params"
)

// Config holds configuration for the development chain.
type Config struct {
	// Host is the interface the JSON-RPC endpoint binds to.
	Host string `mapstructure:"host" default:"127.0.0.1"`
	// Port is the JSON-RPC port; 0 picks a free one.
	Port int `mapstructure:"port" default:"8545"`
	// ChainID is the EIP-155 chain id.
	ChainID uint64 `mapstructure:"chain_id" default:"1337"`
	// GasLimit is the block gas limit.
	GasLimit uint64 `mapstructure:"gas_limit" default:"30000000"`
	// AccountsFile is read by the start command.
	AccountsFile string `mapstructure:"accounts_file" default:"./config/accounts.json"`
	// BlockTime is the miner tick; 0 mines on demand only.
	BlockTime time.Duration `mapstructure:"block_time" default:"1s"`
	// EmptyBlocks seals a block on every tick.
	EmptyBlocks bool `mapstructure:"empty_blocks" default:"false"`
}

func DefaultConfig() *Config {
	return &Config{
		Host:         params.DefaultHost,
		Port:         params.DefaultPort,
		ChainID:      params.DevChainID,
		GasLimit:     params.DefaultGasLimit,
		AccountsFile: accounts.DefaultPath,
		BlockTime:    params.DefaultBlockTime,
	}
}
