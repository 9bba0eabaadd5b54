package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultNames are the accounts generate creates when given no names.
var DefaultNames = []string{"meca_dao", "meca_tower", "meca_host", "meca_user", "meca_task"}

// Generate creates one account per name with a fresh secp256k1 key and the
// given balance.
func Generate(names []string, balance Balance) (Mapping, error) {
	m := make(Mapping, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("duplicate account name %q", name)
		}
		seen[name] = true

		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		m = append(m, Entry{
			ID: name,
			Record: Record{
				PrivateKey: StringKey(hexutil.Encode(crypto.FromECDSA(key))),
				Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
				Balance:    append(Balance(nil), balance...),
			},
		})
	}
	return m, nil
}

// WriteFile writes m as indented JSON, creating the directory if needed.
func WriteFile(path string, m Mapping) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
