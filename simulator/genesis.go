package simulator

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Siasom1/devchain/accounts"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidAccount is returned when a wallet account cannot be put in the
// genesis allocation.
var ErrInvalidAccount = errors.New("invalid account")

// SeededAccount is a wallet account after key derivation.
type SeededAccount struct {
	Address   common.Address
	SecretKey string
	Balance   *big.Int
}

// buildAlloc derives an address for every wallet account and funds it with
// its balance in wei. Keys may carry a 0x prefix. A missing balance funds
// nothing; negative, fractional or oversized balances and repeated keys are
// rejected.
func buildAlloc(list []accounts.Account) (types.GenesisAlloc, []SeededAccount, error) {
	alloc := make(types.GenesisAlloc, len(list))
	seeded := make([]SeededAccount, 0, len(list))

	for i, acc := range list {
		text, err := acc.SecretKey.Hex()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: account %d: %v", ErrInvalidAccount, i, err)
		}
		hexKey := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: account %d: secret key: %v", ErrInvalidAccount, i, err)
		}

		balance, err := acc.Balance.BigInt()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: account %d: %v", ErrInvalidAccount, i, err)
		}
		if balance.Sign() < 0 || balance.BitLen() > 256 {
			return nil, nil, fmt.Errorf("%w: account %d: balance %s out of range", ErrInvalidAccount, i, balance)
		}

		addr := crypto.PubkeyToAddress(key.PublicKey)
		if _, dup := alloc[addr]; dup {
			return nil, nil, fmt.Errorf("%w: account %d: duplicate address %s", ErrInvalidAccount, i, addr.Hex())
		}

		alloc[addr] = types.Account{Balance: balance}
		seeded = append(seeded, SeededAccount{
			Address:   addr,
			SecretKey: text,
			Balance:   new(big.Int).Set(balance),
		})
	}

	return alloc, seeded, nil
}
