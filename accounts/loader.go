package accounts

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is where the file loader looks when no path is configured.
const DefaultPath = "./config/accounts.json"

// LoadFile reads and parses an account mapping file.
func LoadFile(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes an account mapping from JSON.
func Parse(data []byte) (Mapping, error) {
	var m Mapping
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseArgs reads the argument form: a port followed by a JSON mapping.
func ParseArgs(args []string) (int, Mapping, error) {
	if len(args) < 2 {
		return 0, nil, fmt.Errorf("expected <port> <accounts-json>, got %d arguments", len(args))
	}

	port, err := ParsePort(args[0])
	if err != nil {
		return 0, nil, err
	}

	m, err := Parse([]byte(args[1]))
	if err != nil {
		return 0, nil, fmt.Errorf("parse accounts argument: %w", err)
	}
	return port, m, nil
}

// ParsePort parses a TCP port. 0 asks for any free port.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: out of range", port)
	}
	return port, nil
}
