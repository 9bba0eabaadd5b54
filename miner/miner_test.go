package miner_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/events"
	"github.com/Siasom1/devchain/miner"
	"github.com/Siasom1/devchain/simulator"
	"github.com/Siasom1/devchain/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fundedKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fixture struct {
	server *simulator.Server
	store  *state.State
	bus    *events.EventBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	server := simulator.NewServer(simulator.Options{
		Wallet: simulator.WalletOptions{Accounts: []accounts.Account{
			{SecretKey: accounts.StringKey(fundedKey), Balance: accounts.StringBalance("100000000000000000000")},
		}},
	}, zap.NewNop())
	require.NoError(t, server.Listen(context.Background(), 0))
	t.Cleanup(func() { _ = server.Close() })

	store, err := state.NewState()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{server: server, store: store, bus: events.NewEventBus()}
}

func (f *fixture) sendTransfer(t *testing.T, nonce uint64) common.Hash {
	t.Helper()
	ctx := context.Background()

	client, err := f.server.Client()
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(fundedKey)
	require.NoError(t, err)

	gasPrice, err := client.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx := types.NewTransaction(nonce, common.HexToAddress("0x00000000000000000000000000000000000000aa"), big.NewInt(1), 21000, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(f.server.ChainID())), key)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(ctx, signed))
	return signed.Hash()
}

func TestMiner_SyncRecordsGenesis(t *testing.T) {
	f := newFixture(t)
	m := miner.NewMiner(f.server, f.store, f.bus, zap.NewNop(), miner.Config{})

	b, err := m.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), b.Number)

	head, err := f.store.Head()
	require.NoError(t, err)
	assert.Equal(t, b.Hash, head.Hash)
	assert.Equal(t, uint64(0), m.Mined())
}

func TestMiner_MineRecordsAndPublishes(t *testing.T) {
	f := newFixture(t)
	m := miner.NewMiner(f.server, f.store, f.bus, zap.NewNop(), miner.Config{})

	blocks := f.bus.SubscribeBlocks()
	txs := f.bus.SubscribeTxs()

	txHash := f.sendTransfer(t, 0)

	b, err := m.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Number)
	assert.Equal(t, []common.Hash{txHash}, b.TxHashes)
	assert.Equal(t, uint64(1), m.Mined())

	select {
	case got := <-blocks:
		assert.Equal(t, b.Hash, got.Hash)
	case <-time.After(time.Second):
		t.Fatal("no block event")
	}
	select {
	case got := <-txs:
		assert.Equal(t, txHash, got)
	case <-time.After(time.Second):
		t.Fatal("no tx event")
	}

	number, err := f.store.FindTxBlock(txHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), number)

	stored, err := f.store.LoadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, stored.Hash)
}

func TestMiner_TickerSealsPendingTransactions(t *testing.T) {
	f := newFixture(t)
	m := miner.NewMiner(f.server, f.store, f.bus, zap.NewNop(), miner.Config{BlockTime: 50 * time.Millisecond})

	m.Start()
	defer m.Stop()
	assert.True(t, m.Running())

	// Nothing pending, nothing mined.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, uint64(0), m.Mined())

	txHash := f.sendTransfer(t, 0)
	assert.Eventually(t, func() bool {
		_, err := f.store.FindTxBlock(txHash)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestMiner_EmptyBlocks(t *testing.T) {
	f := newFixture(t)
	m := miner.NewMiner(f.server, f.store, f.bus, zap.NewNop(), miner.Config{BlockTime: 50 * time.Millisecond, EmptyBlocks: true})

	m.Start()
	assert.Eventually(t, func() bool { return m.Mined() >= 2 }, 5*time.Second, 20*time.Millisecond)
	m.Stop()

	assert.False(t, m.Running())
	head, err := f.store.Head()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, head.Number, uint64(2))
}

func TestMiner_ZeroBlockTimeDisablesTicker(t *testing.T) {
	f := newFixture(t)
	m := miner.NewMiner(f.server, f.store, f.bus, zap.NewNop(), miner.Config{EmptyBlocks: true})

	m.Start()
	assert.False(t, m.Running())
	m.Stop()

	_, err := m.Mine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Mined())
}

func TestMiner_NotListening(t *testing.T) {
	server := simulator.NewServer(simulator.Options{}, zap.NewNop())
	m := miner.NewMiner(server, nil, nil, nil, miner.Config{})

	_, err := m.Mine(context.Background())
	assert.ErrorIs(t, err, simulator.ErrNotListening)

	_, err = m.Sync(context.Background())
	assert.ErrorIs(t, err, simulator.ErrNotListening)
}
