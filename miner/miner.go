// Package miner seals blocks on the simulated chain on a timer or on demand.
package miner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Siasom1/devchain/events"
	"github.com/Siasom1/devchain/state"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Chain is the chain the miner seals blocks on.
type Chain interface {
	Mine() (common.Hash, error)
	Client() (simulated.Client, error)
}

// Config controls the block ticker.
type Config struct {
	// BlockTime is the tick interval. Zero disables the ticker.
	BlockTime time.Duration
	// EmptyBlocks seals a block on every tick, even with no pending
	// transactions.
	EmptyBlocks bool
}

// Miner seals blocks on the simulated chain, records them in the state store
// and publishes them on the event bus.
type Miner struct {
	chain  Chain
	store  *state.State
	events *events.EventBus
	logger *zap.Logger
	cfg    Config

	running *atomic.Bool
	mined   *atomic.Uint64

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

func NewMiner(chain Chain, store *state.State, bus *events.EventBus, logger *zap.Logger, cfg Config) *Miner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Miner{
		chain:   chain,
		store:   store,
		events:  bus,
		logger:  logger,
		cfg:     cfg,
		running: atomic.NewBool(false),
		mined:   atomic.NewUint64(0),
	}
}

// Start runs the ticker in the background. It does nothing when the block
// time is zero or the miner is already running.
func (m *Miner) Start() {
	if m.cfg.BlockTime <= 0 {
		m.logger.Info("block ticker disabled, mining on demand only")
		return
	}
	if !m.running.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	quit, done := m.quit, m.done
	m.mu.Unlock()

	m.logger.Info("starting miner",
		zap.Duration("block_time", m.cfg.BlockTime),
		zap.Bool("empty_blocks", m.cfg.EmptyBlocks),
	)

	go func() {
		defer close(done)

		ticker := time.NewTicker(m.cfg.BlockTime)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.tick()
			case <-quit:
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight block to finish.
func (m *Miner) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	m.logger.Info("stopping miner")

	m.mu.Lock()
	quit, done := m.quit, m.done
	m.mu.Unlock()

	close(quit)
	<-done
}

// Running reports whether the ticker is active.
func (m *Miner) Running() bool {
	return m.running.Load()
}

// Mined returns how many blocks this miner has sealed.
func (m *Miner) Mined() uint64 {
	return m.mined.Load()
}

func (m *Miner) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.BlockTime+5*time.Second)
	defer cancel()

	if !m.cfg.EmptyBlocks {
		pending, err := m.pending(ctx)
		if err != nil {
			m.logger.Error("failed to read pending transactions", zap.Error(err))
			return
		}
		if pending == 0 {
			return
		}
	}

	if _, err := m.Mine(ctx); err != nil {
		m.logger.Error("failed to mine block", zap.Error(err))
	}
}

func (m *Miner) pending(ctx context.Context) (uint, error) {
	client, err := m.chain.Client()
	if err != nil {
		return 0, err
	}
	return client.PendingTransactionCount(ctx)
}

// Mine seals one block with whatever is pending and records it.
func (m *Miner) Mine(ctx context.Context) (*state.Block, error) {
	hash, err := m.chain.Mine()
	if err != nil {
		return nil, err
	}

	client, err := m.chain.Client()
	if err != nil {
		return nil, err
	}
	block, err := client.BlockByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", hash.Hex(), err)
	}

	summary, err := m.record(block)
	if err != nil {
		return nil, err
	}
	m.mined.Inc()

	m.logger.Info("mined block",
		zap.Uint64("number", summary.Number),
		zap.Int("txs", len(summary.TxHashes)),
		zap.String("hash", summary.Hash.Hex()),
	)
	return summary, nil
}

// Sync records the current head, typically the genesis block right after
// the chain starts.
func (m *Miner) Sync(ctx context.Context) (*state.Block, error) {
	client, err := m.chain.Client()
	if err != nil {
		return nil, err
	}
	block, err := client.BlockByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load head block: %w", err)
	}
	return m.record(block)
}

func (m *Miner) record(block *types.Block) (*state.Block, error) {
	summary := summarize(block)

	if m.store != nil {
		if err := m.store.SaveBlock(summary); err != nil {
			return nil, fmt.Errorf("save block %d: %w", summary.Number, err)
		}
	}

	if m.events != nil {
		for _, h := range summary.TxHashes {
			m.events.PublishTx(h)
		}
		m.events.PublishBlock(summary)
	}
	return summary, nil
}

func summarize(block *types.Block) *state.Block {
	txs := block.Transactions()
	hashes := make([]common.Hash, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash())
	}

	return &state.Block{
		Number:     block.NumberU64(),
		Hash:       block.Hash(),
		ParentHash: block.ParentHash(),
		Time:       block.Time(),
		GasUsed:    block.GasUsed(),
		TxHashes:   hashes,
	}
}
