package events

import (
	"sync"

	"github.com/Siasom1/devchain/state"
	"github.com/ethereum/go-ethereum/common"
)

type EventBus struct {
	mu        sync.RWMutex
	blockSubs []chan *state.Block
	txSubs    []chan common.Hash
}

func NewEventBus() *EventBus {
	return &EventBus{
		blockSubs: make([]chan *state.Block, 0),
		txSubs:    make([]chan common.Hash, 0),
	}
}

// -------------------- Blocks --------------------

func (b *EventBus) SubscribeBlocks() <-chan *state.Block {
	ch := make(chan *state.Block, 16)

	b.mu.Lock()
	b.blockSubs = append(b.blockSubs, ch)
	b.mu.Unlock()

	return ch
}

// UnsubscribeBlocks removes and closes a channel returned by SubscribeBlocks.
func (b *EventBus) UnsubscribeBlocks(sub <-chan *state.Block) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.blockSubs {
		if ch == sub {
			b.blockSubs = append(b.blockSubs[:i], b.blockSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

// PublishBlock never blocks; slow subscribers miss events.
func (b *EventBus) PublishBlock(block *state.Block) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.blockSubs {
		select {
		case ch <- block:
		default:
		}
	}
}

// -------------------- Transactions --------------------

func (b *EventBus) SubscribeTxs() <-chan common.Hash {
	ch := make(chan common.Hash, 64)

	b.mu.Lock()
	b.txSubs = append(b.txSubs, ch)
	b.mu.Unlock()

	return ch
}

func (b *EventBus) UnsubscribeTxs(sub <-chan common.Hash) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.txSubs {
		if ch == sub {
			b.txSubs = append(b.txSubs[:i], b.txSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *EventBus) PublishTx(hash common.Hash) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.txSubs {
		select {
		case ch <- hash:
		default:
		}
	}
}
