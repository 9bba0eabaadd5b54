package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	accountPrefix = []byte("acct-")
	addressPrefix = []byte("addr-")
	blockPrefix   = []byte("block-")
	txPrefix      = []byte("tx-")
	headKey       = []byte("head")
)

// State is a higher-level wrapper around StateDB with the account and block
// helpers the node needs.
type State struct {
	db *StateDB
}

// NewState opens an in-memory StateDB and wraps it.
func NewState() (*State, error) {
	db, err := NewStateDB()
	if err != nil {
		return nil, err
	}
	return &State{db: db}, nil
}

func (s *State) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func accountKey(index int) []byte {
	return []byte(fmt.Sprintf("%s%08d", accountPrefix, index))
}

func addressKey(addr common.Address) []byte {
	return append(append([]byte{}, addressPrefix...), strings.ToLower(addr.Hex())...)
}

func blockKey(number uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", blockPrefix, number))
}

func txKey(hash common.Hash) []byte {
	return append(append([]byte{}, txPrefix...), hash.Hex()...)
}

// ------------------- ACCOUNTS ---------------------

// SaveAccount stores acc under its index and makes it findable by address.
func (s *State) SaveAccount(acc *Account) error {
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	if err := s.db.putJSON(accountKey(acc.Index), acc); err != nil {
		return err
	}
	return s.db.putJSON(addressKey(acc.Address), acc.Index)
}

// GetAccount returns the seeded account with the given address.
func (s *State) GetAccount(addr common.Address) (*Account, error) {
	var index int
	if err := s.db.getJSON(addressKey(addr), &index); err != nil {
		return nil, err
	}

	var acc Account
	if err := s.db.getJSON(accountKey(index), &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// Accounts returns every seeded account in seeding order.
func (s *State) Accounts() ([]*Account, error) {
	list := []*Account{}
	var decodeErr error

	err := s.db.eachPrefix(accountPrefix, false, func(v []byte) bool {
		var acc Account
		if decodeErr = json.Unmarshal(v, &acc); decodeErr != nil {
			return false
		}
		list = append(list, &acc)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return list, nil
}

// ------------------- BLOCKS ---------------------

// SaveBlock stores b, indexes its transactions and moves the head to it when
// it is the highest block seen.
func (s *State) SaveBlock(b *Block) error {
	if err := s.db.putJSON(blockKey(b.Number), b); err != nil {
		return err
	}
	for _, h := range b.TxHashes {
		if err := s.db.putJSON(txKey(h), b.Number); err != nil {
			return err
		}
	}

	head, err := s.Head()
	if err != nil && err != ErrNotFound {
		return err
	}
	if head == nil || b.Number >= head.Number {
		return s.db.putJSON(headKey, b.Number)
	}
	return nil
}

// LoadBlock returns the block with the given number.
func (s *State) LoadBlock(number uint64) (*Block, error) {
	var b Block
	if err := s.db.getJSON(blockKey(number), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Head returns the highest stored block.
func (s *State) Head() (*Block, error) {
	var number uint64
	if err := s.db.getJSON(headKey, &number); err != nil {
		return nil, err
	}
	return s.LoadBlock(number)
}

// LatestBlocks returns up to n blocks, newest first.
func (s *State) LatestBlocks(n int) ([]*Block, error) {
	list := []*Block{}
	if n <= 0 {
		return list, nil
	}
	var decodeErr error

	err := s.db.eachPrefix(blockPrefix, true, func(v []byte) bool {
		var b Block
		if decodeErr = json.Unmarshal(v, &b); decodeErr != nil {
			return false
		}
		list = append(list, &b)
		return len(list) < n
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return list, nil
}

// FindTxBlock returns the number of the block holding the transaction.
func (s *State) FindTxBlock(hash common.Hash) (uint64, error) {
	var number uint64
	if err := s.db.getJSON(txKey(hash), &number); err != nil {
		return 0, err
	}
	return number, nil
}
