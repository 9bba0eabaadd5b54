package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Node.Host)
	assert.Equal(t, 8545, cfg.Node.Port)
	assert.Equal(t, uint64(1337), cfg.Node.ChainID)
	assert.Equal(t, uint64(30000000), cfg.Node.GasLimit)
	assert.Equal(t, "./config/accounts.json", cfg.Node.AccountsFile)
	assert.Equal(t, time.Second, cfg.Node.BlockTime)
	assert.False(t, cfg.Node.EmptyBlocks)

	assert.False(t, cfg.Explorer.Enabled)
	assert.Equal(t, 9500, cfg.Explorer.Port)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("NODE_PORT", "9000")
	t.Setenv("NODE_CHAIN_ID", "31337")
	t.Setenv("NODE_BLOCK_TIME", "250ms")
	t.Setenv("EXPLORER_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Node.Port)
	assert.Equal(t, uint64(31337), cfg.Node.ChainID)
	assert.Equal(t, 250*time.Millisecond, cfg.Node.BlockTime)
	assert.True(t, cfg.Explorer.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NODE_ACCOUNTS_FILE=/tmp/devchain-accounts.json\nNODE_EMPTY_BLOCKS=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("NODE_ACCOUNTS_FILE")
		os.Unsetenv("NODE_EMPTY_BLOCKS")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/devchain-accounts.json", cfg.Node.AccountsFile)
	assert.True(t, cfg.Node.EmptyBlocks)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("NODE_PORT", "not-a-port")

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
