package params

import (
	"math/big"
	"time"

	gethparams "github.com/ethereum/go-ethereum/params"
)

const (
	// DevChainID is the chain id used when none is configured.
	DevChainID uint64 = 1337

	// DefaultPort is the JSON-RPC port used when none is configured.
	DefaultPort = 8545

	// DefaultHost is the interface the JSON-RPC endpoint binds to.
	DefaultHost = "127.0.0.1"

	// DefaultGasLimit is the block gas limit of the simulated chain.
	DefaultGasLimit uint64 = 30_000_000

	// DefaultBlockTime is how often the miner checks for pending transactions.
	DefaultBlockTime = time.Second
)

// ChainConfig describes the simulated chain.
type ChainConfig struct {
	ChainID   uint64 `json:"chainId"`
	GasLimit  uint64 `json:"gasLimit"`
	BlockTime time.Duration
}

// DevChainConfig returns the defaults for a local development chain.
func DevChainConfig() *ChainConfig {
	return &ChainConfig{
		ChainID:   DevChainID,
		GasLimit:  DefaultGasLimit,
		BlockTime: DefaultBlockTime,
	}
}

// EthereumConfig returns the go-ethereum chain rules for the given chain id:
// every fork active from genesis, like geth --dev.
func (c *ChainConfig) EthereumConfig() *gethparams.ChainConfig {
	cfg := *gethparams.AllDevChainProtocolChanges
	cfg.ChainID = new(big.Int).SetUint64(c.ChainID)
	return &cfg
}
