package accounts

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"
)

// ErrWrongPassphrase is returned when a wallet file cannot be decrypted.
var ErrWrongPassphrase = errors.New("wrong passphrase")

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// WalletFile is an encrypted backup of one generated key.
type WalletFile struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	PrivateKey string `json:"privateKey"` // nonce || AES-GCM ciphertext, hex
}

func deriveKey(pass string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(pass), salt, scryptN, scryptR, scryptP, scryptKeyLen)
}

func encrypt(data []byte, pass string) (salt string, ciphertext string, err error) {
	s := make([]byte, saltLen)
	if _, err := rand.Read(s); err != nil {
		return "", "", err
	}
	key, err := deriveKey(pass, s)
	if err != nil {
		return "", "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", err
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)
	return hex.EncodeToString(s), hex.EncodeToString(sealed), nil
}

func decrypt(saltHex, hexCipher, pass string) ([]byte, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	data, err := hex.DecodeString(hexCipher)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext: %w", err)
	}

	key, err := deriveKey(pass, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

// WriteWallets writes one encrypted wallet file per entry into dir, named
// after the entry.
func WriteWallets(dir string, m Mapping, pass string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(m))
	for _, e := range m {
		text, err := e.Record.PrivateKey.Hex()
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", e.ID, err)
		}
		key, err := crypto.HexToECDSA(trimHexPrefix(text))
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", e.ID, err)
		}

		salt, sealed, err := encrypt(crypto.FromECDSA(key), pass)
		if err != nil {
			return nil, err
		}
		w := &WalletFile{
			Name:       e.ID,
			Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
			Salt:       salt,
			PrivateKey: sealed,
		}

		data, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.ID+".json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// OpenWallet reads a wallet file and decrypts its key.
func OpenWallet(path, pass string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var w WalletFile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse wallet %s: %w", path, err)
	}

	raw, err := decrypt(w.Salt, w.PrivateKey, pass)
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(raw)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
