package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a seeded development account.
type Account struct {
	Index     int            `json:"index"`
	Label     string         `json:"label,omitempty"`
	Address   common.Address `json:"address"`
	SecretKey string         `json:"secretKey"`
	Balance   *big.Int       `json:"balance"` // genesis balance in wei
}

// Block is what the store keeps about a sealed block.
type Block struct {
	Number     uint64        `json:"number"`
	Hash       common.Hash   `json:"hash"`
	ParentHash common.Hash   `json:"parentHash"`
	Time       uint64        `json:"timestamp"`
	GasUsed    uint64        `json:"gasUsed"`
	TxHashes   []common.Hash `json:"transactions"`
}
