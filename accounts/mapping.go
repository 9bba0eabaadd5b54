package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// ErrMalformedMapping is returned when the account mapping is not a JSON object.
var ErrMalformedMapping = errors.New("malformed account mapping")

// Balance is a balance exactly as it was written in the mapping: a JSON
// number, a JSON string, or nothing at all.
type Balance []byte

// NumberBalance returns a balance holding the JSON number n.
func NumberBalance(n int64) Balance {
	return Balance(fmt.Sprintf("%d", n))
}

// StringBalance returns a balance holding the JSON string s.
func StringBalance(s string) Balance {
	b, _ := json.Marshal(s)
	return Balance(b)
}

func (b Balance) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Balance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	*b = append((*b)[:0], data...)
	return nil
}

// Missing reports whether no balance was given.
func (b Balance) Missing() bool {
	return len(b) == 0
}

// IsString reports whether the balance was written as a JSON string.
func (b Balance) IsString() bool {
	return len(b) > 0 && b[0] == '"'
}

func (b Balance) String() string {
	if b.IsString() {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			return s
		}
	}
	return string(b)
}

// BigInt interprets the balance as an amount of wei. Strings may be decimal
// or 0x-prefixed hex; numbers must be integral. A missing balance is zero.
func (b Balance) BigInt() (*big.Int, error) {
	if b.Missing() {
		return new(big.Int), nil
	}
	s := strings.TrimSpace(b.String())
	if v, ok := math.ParseBig256(s); ok {
		return v, nil
	}
	if !b.IsString() {
		// JSON numbers such as 1e21.
		f, _, err := big.ParseFloat(s, 10, 512, big.ToNearestEven)
		if err == nil && f.IsInt() {
			v, _ := f.Int(nil)
			return v, nil
		}
	}
	return nil, fmt.Errorf("invalid balance %s", string(b))
}

// Key is a private key exactly as it was written in the mapping. It should
// be a JSON string holding hex, but any token is kept so it reaches the
// wallet unchanged.
type Key []byte

// StringKey returns a key holding the JSON string s.
func StringKey(s string) Key {
	b, _ := json.Marshal(s)
	return Key(b)
}

func (k Key) MarshalJSON() ([]byte, error) {
	if len(k) == 0 {
		return []byte("null"), nil
	}
	return k, nil
}

func (k *Key) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = nil
		return nil
	}
	*k = append((*k)[:0], data...)
	return nil
}

// Missing reports whether no key was given.
func (k Key) Missing() bool {
	return len(k) == 0
}

// IsString reports whether the key was written as a JSON string.
func (k Key) IsString() bool {
	return len(k) > 0 && k[0] == '"'
}

func (k Key) String() string {
	if k.IsString() {
		var s string
		if err := json.Unmarshal(k, &s); err == nil {
			return s
		}
	}
	return string(k)
}

// Hex returns the key text. Keys that are missing or not JSON strings are
// an error naming what was found instead.
func (k Key) Hex() (string, error) {
	switch {
	case k.Missing():
		return "", errors.New("private key is missing")
	case !k.IsString():
		return "", fmt.Errorf("private key must be a JSON string, got %s %s", jsonKind(k), string(k))
	}
	return k.String(), nil
}

func jsonKind(raw []byte) string {
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// Record is one value of the account mapping.
type Record struct {
	PrivateKey Key     `json:"private_key"`
	// Address is informational; only generated files carry it.
	Address    string  `json:"account_address,omitempty"`
	Balance    Balance `json:"balance"`
}

// Entry is an identifier together with its record.
type Entry struct {
	ID     string
	Record Record
}

// Mapping is the account mapping in document order.
type Mapping []Entry

// Len returns the number of entries.
func (m Mapping) Len() int {
	return len(m)
}

// UnmarshalJSON decodes a JSON object keeping its key order. A key that
// appears twice keeps its first position and takes its last value. Values
// that are not objects decode to an empty Record.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMapping, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected an object", ErrMalformedMapping)
	}

	out := Mapping{}
	pos := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMapping, err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: entry %q: %v", ErrMalformedMapping, key, err)
		}

		entry := Entry{ID: key, Record: decodeRecord(raw)}
		if i, ok := pos[key]; ok {
			out[i] = entry
			continue
		}
		pos[key] = len(out)
		out = append(out, entry)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMapping, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after object", ErrMalformedMapping)
	}

	*m = out
	return nil
}

func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeRecord(raw json.RawMessage) Record {
	var rec Record
	if len(raw) == 0 || raw[0] != '{' {
		return rec
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return rec
	}
	if v, ok := fields["private_key"]; ok {
		_ = rec.PrivateKey.UnmarshalJSON(v)
	}
	if v, ok := fields["account_address"]; ok {
		_ = json.Unmarshal(v, &rec.Address)
	}
	if v, ok := fields["balance"]; ok {
		_ = rec.Balance.UnmarshalJSON(v)
	}
	return rec
}
