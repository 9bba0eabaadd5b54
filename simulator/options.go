package simulator

import (
	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/params"
)

// WalletOptions lists the accounts the chain starts with.
type WalletOptions struct {
	Accounts []accounts.Account `json:"accounts"`
}

// ChainOptions tunes the simulated chain. Zero values take the defaults
// from the params package.
type ChainOptions struct {
	Host     string `json:"host,omitempty"`
	ChainID  uint64 `json:"chainId,omitempty"`
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// Options is everything the server is constructed with.
type Options struct {
	Wallet WalletOptions `json:"wallet"`
	Chain  ChainOptions  `json:"chain"`
}

func (o ChainOptions) withDefaults() ChainOptions {
	if o.Host == "" {
		o.Host = params.DefaultHost
	}
	if o.ChainID == 0 {
		o.ChainID = params.DevChainID
	}
	if o.GasLimit == 0 {
		o.GasLimit = params.DefaultGasLimit
	}
	return o
}
