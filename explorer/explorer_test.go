package explorer_test

import (
	"bufio"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Siasom1/devchain/accounts"
	"github.com/Siasom1/devchain/events"
	"github.com/Siasom1/devchain/explorer"
	"github.com/Siasom1/devchain/miner"
	"github.com/Siasom1/devchain/simulator"
	"github.com/Siasom1/devchain/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fundedKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fixture struct {
	server *simulator.Server
	store  *state.State
	bus    *events.EventBus
	miner  *miner.Miner
	http   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	server := simulator.NewServer(simulator.Options{
		Wallet: simulator.WalletOptions{Accounts: []accounts.Account{
			{SecretKey: accounts.StringKey(fundedKey), Balance: accounts.StringBalance("100000000000000000000")},
		}},
	}, zap.NewNop())
	require.NoError(t, server.Listen(ctx, 0))
	t.Cleanup(func() { _ = server.Close() })

	store, err := state.NewState()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for i, acc := range server.Accounts() {
		require.NoError(t, store.SaveAccount(&state.Account{Index: i, Address: acc.Address, SecretKey: acc.SecretKey, Balance: acc.Balance}))
	}

	bus := events.NewEventBus()
	m := miner.NewMiner(server, store, bus, zap.NewNop(), miner.Config{})
	_, err = m.Sync(ctx)
	require.NoError(t, err)

	api := explorer.NewExplorerAPI(server, m, store, bus, zap.NewNop())
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: server, store: store, bus: bus, miner: m, http: ts}
}

func (f *fixture) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) transfer(t *testing.T, to common.Address, value int64) common.Hash {
	t.Helper()
	ctx := context.Background()

	client, err := f.server.Client()
	require.NoError(t, err)
	key, err := crypto.HexToECDSA(fundedKey)
	require.NoError(t, err)
	gasPrice, err := client.SuggestGasPrice(ctx)
	require.NoError(t, err)

	tx := types.NewTransaction(0, to, big.NewInt(value), 21000, gasPrice, nil)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(f.server.ChainID())), key)
	require.NoError(t, err)
	require.NoError(t, client.SendTransaction(ctx, signed))
	return signed.Hash()
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)

	var got []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/explorer/accounts", &got))
	require.Len(t, got, 1)

	assert.Equal(t, "100000000000000000000", got[0]["balance"])
	assert.Equal(t, "100000000000000000000", got[0]["initialBalance"])
	assert.True(t, strings.EqualFold(f.server.Accounts()[0].Address.Hex(), got[0]["address"].(string)))
}

func TestBlocksAndTransactions(t *testing.T) {
	f := newFixture(t)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	txHash := f.transfer(t, to, 7)

	resp, err := http.Post(f.http.URL+"/explorer/mine", "application/json", nil)
	require.NoError(t, err)
	var mined state.Block
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&mined))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(1), mined.Number)

	var latest []state.Block
	require.Equal(t, http.StatusOK, f.get(t, "/explorer/latest-blocks", &latest))
	require.Len(t, latest, 2)
	assert.Equal(t, uint64(1), latest[0].Number)
	assert.Equal(t, uint64(0), latest[1].Number)

	var block state.Block
	require.Equal(t, http.StatusOK, f.get(t, "/explorer/block/1", &block))
	assert.Equal(t, []common.Hash{txHash}, block.TxHashes)

	var tx map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/explorer/tx/"+txHash.Hex(), &tx))
	assert.EqualValues(t, 1, tx["blockNumber"])
	assert.EqualValues(t, 0, tx["index"])
	assert.NotNil(t, tx["receipt"])

	var accs []map[string]interface{}
	require.Equal(t, http.StatusOK, f.get(t, "/explorer/accounts", &accs))
	assert.NotEqual(t, accs[0]["initialBalance"], accs[0]["balance"])
}

func TestErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"BlockNotNumber", "/explorer/block/abc", http.StatusBadRequest},
		{"BlockMissing", "/explorer/block/99", http.StatusNotFound},
		{"TxBadHash", "/explorer/tx/0x1234", http.StatusBadRequest},
		{"TxMissing", "/explorer/tx/" + common.Hash{1}.Hex(), http.StatusNotFound},
		{"LatestBadCount", "/explorer/latest-blocks?n=-1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, tt.status, f.get(t, tt.path, &body))
			assert.NotEmpty(t, body["error"])
		})
	}

	resp, err := http.Get(f.http.URL + "/explorer/mine")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStreamBlocks(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/explorer/stream/blocks", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	mined, err := f.miner.Mine(ctx)
	require.NoError(t, err)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var got state.Block
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &got))
	assert.Equal(t, mined.Hash, got.Hash)
}

func TestWebSocketBlocks(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/explorer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	mined, err := f.miner.Mine(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got state.Block
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, mined.Number, got.Number)
	assert.Equal(t, mined.Hash, got.Hash)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	api := explorer.NewExplorerAPI(f.server, f.miner, f.store, f.bus, zap.NewNop())

	addr, err := api.Start("127.0.0.1", 0)
	require.NoError(t, err)
	assert.Greater(t, addr.Port, 0)
	assert.True(t, addr.IP.IsLoopback(), "bound to %s", addr.IP)

	_, err = api.Start("127.0.0.1", 0)
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, api.Stop(ctx))
	assert.NoError(t, api.Stop(ctx))
}

func TestStopClosesStreams(t *testing.T) {
	f := newFixture(t)
	api := explorer.NewExplorerAPI(f.server, f.miner, f.store, f.bus, zap.NewNop())

	addr, err := api.Start("127.0.0.1", 0)
	require.NoError(t, err)
	base := "http://" + addr.String()

	resp, err := http.Get(base + "/explorer/stream/blocks")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr.String()+"/explorer/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	began := time.Now()
	require.NoError(t, api.Stop(ctx))
	assert.Less(t, time.Since(began), 2*time.Second)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
