package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Siasom1/devchain/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultLatestBlocks = 10
	maxLatestBlocks     = 100
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (api *ExplorerAPI) storeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, state.ErrNotFound) {
		writeError(w, http.StatusNotFound, what+" not found")
		return
	}
	api.logger.Error("explorer store read failed", zap.String("what", what), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

type accountView struct {
	Index          int            `json:"index"`
	Label          string         `json:"label,omitempty"`
	Address        common.Address `json:"address"`
	Balance        string         `json:"balance"`
	InitialBalance string         `json:"initialBalance"`
}

// /explorer/accounts
func (api *ExplorerAPI) handleAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := api.store.Accounts()
	if err != nil {
		api.storeError(w, err, "accounts")
		return
	}

	client, err := api.chain.Client()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	out := make([]accountView, 0, len(list))
	for _, acc := range list {
		bal, err := client.BalanceAt(r.Context(), acc.Address, nil)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		out = append(out, accountView{
			Index:          acc.Index,
			Label:          acc.Label,
			Address:        acc.Address,
			Balance:        bal.String(),
			InitialBalance: acc.Balance.String(),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

// /explorer/latest-blocks?n=10
func (api *ExplorerAPI) handleLatestBlocks(w http.ResponseWriter, r *http.Request) {
	n := defaultLatestBlocks
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "invalid block count")
			return
		}
		n = min(v, maxLatestBlocks)
	}

	blocks, err := api.store.LatestBlocks(n)
	if err != nil {
		api.storeError(w, err, "blocks")
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// /explorer/block/{number}
func (api *ExplorerAPI) handleBlockByNumber(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.ParseUint(r.PathValue("number"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid block number")
		return
	}

	block, err := api.store.LoadBlock(number)
	if err != nil {
		api.storeError(w, err, "block")
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// /explorer/tx/{hash}
func (api *ExplorerAPI) handleTransaction(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("hash")
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		writeError(w, http.StatusBadRequest, "invalid transaction hash")
		return
	}
	txHash := common.BytesToHash(b)

	blockNum, err := api.store.FindTxBlock(txHash)
	if err != nil {
		api.storeError(w, err, "tx")
		return
	}
	block, err := api.store.LoadBlock(blockNum)
	if err != nil {
		api.storeError(w, err, "block")
		return
	}

	index := -1
	for i, h := range block.TxHashes {
		if h == txHash {
			index = i
			break
		}
	}

	var receipt *types.Receipt
	if client, err := api.chain.Client(); err == nil {
		receipt, _ = client.TransactionReceipt(r.Context(), txHash)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hash":        txHash,
		"blockNumber": blockNum,
		"blockHash":   block.Hash,
		"index":       index,
		"receipt":     receipt,
	})
}

// /explorer/mine
func (api *ExplorerAPI) handleMine(w http.ResponseWriter, r *http.Request) {
	block, err := api.miner.Mine(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return flusher, true
}

// /explorer/stream/blocks (SSE)
func (api *ExplorerAPI) handleStreamBlocks(w http.ResponseWriter, r *http.Request) {
	ch := api.events.SubscribeBlocks()
	defer api.events.UnsubscribeBlocks(ch)
	quit := api.stopping()

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	for {
		select {
		case block, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(block)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-quit:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// /explorer/stream/txs (SSE)
func (api *ExplorerAPI) handleStreamTxs(w http.ResponseWriter, r *http.Request) {
	ch := api.events.SubscribeTxs()
	defer api.events.UnsubscribeTxs(ch)
	quit := api.stopping()

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	for {
		select {
		case hash, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(hash)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-quit:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// /explorer/ws pushes every new block as a JSON text message.
func (api *ExplorerAPI) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	api.sockets.Add(1)
	defer api.sockets.Done()

	ch := api.events.SubscribeBlocks()
	defer api.events.UnsubscribeBlocks(ch)
	quit := api.stopping()

	conn, err := api.upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The read loop only notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case block, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(block); err != nil {
				return
			}
		case <-closed:
			return
		case <-quit:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "explorer stopping"))
			return
		case <-r.Context().Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
