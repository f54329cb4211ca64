package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/sabbai/adapulse/core"
)

// Default retention windows for the rolling views
const (
	DefaultBlockWindow = 20
	DefaultTxWindow    = 50
)

// TopicView carries the aggregated view after every applied update
const TopicView = "stream.view"

// View is a point-in-time snapshot of the aggregated stream state. Slices
// are copies; callers may keep them.
type View struct {
	Connected    bool               `json:"connected"`
	Blocks       []core.Block       `json:"blocks"`
	Transactions []core.Transaction `json:"transactions"`
	BlockCount   uint64             `json:"block_count"`
	TxCount      uint64             `json:"tx_count"`
	LatestBlock  *uint64            `json:"latest_block,omitempty"`
}

// Aggregator folds stream updates into rolling windows of recent blocks
// and transactions plus monotonic totals. State survives reconnects; only
// the connected flag tracks the socket.
type Aggregator struct {
	blockWindow int
	txWindow    int
	logger      *slog.Logger
	publisher   message.Publisher

	mu           sync.RWMutex
	connected    bool
	blocks       []core.Block
	transactions []core.Transaction
	blockCount   uint64
	txCount      uint64
	latestBlock  *uint64
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithWindows overrides the retention windows
func WithWindows(blocks, txs int) AggregatorOption {
	return func(a *Aggregator) {
		if blocks > 0 {
			a.blockWindow = blocks
		}
		if txs > 0 {
			a.txWindow = txs
		}
	}
}

// WithViewPublisher republishes the aggregated view after every applied
// update, so other components can consume state changes instead of raw
// frames
func WithViewPublisher(pub message.Publisher) AggregatorOption {
	return func(a *Aggregator) { a.publisher = pub }
}

// WithAggregatorLogger sets the logger
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// NewAggregator creates an aggregator with the default windows
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		blockWindow: DefaultBlockWindow,
		txWindow:    DefaultTxWindow,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run consumes the subscription until its channels close or ctx is
// canceled. Meant to run as a goroutine next to the Manager.
func (a *Aggregator) Run(ctx context.Context, sub *Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-sub.Status:
			if !ok {
				return
			}
			a.setConnected(status.Connected)
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			a.Apply(msg)
		}
	}
}

// Apply folds one stream message into the aggregate. Messages of any type
// other than "update" are ignored.
func (a *Aggregator) Apply(msg core.StreamMessage) {
	if msg.Type != core.StreamMessageUpdate {
		return
	}

	a.mu.Lock()
	if len(msg.Blocks) > 0 {
		a.blocks = mergeByHash(msg.Blocks, a.blocks, a.blockWindow, func(b core.Block) string { return b.Hash })
		a.blockCount += uint64(len(msg.Blocks))
		number := msg.Blocks[0].Number
		a.latestBlock = &number
	}
	if len(msg.Transactions) > 0 {
		a.transactions = mergeByHash(msg.Transactions, a.transactions, a.txWindow, func(t core.Transaction) string { return t.Hash })
		a.txCount += uint64(len(msg.Transactions))
	}
	a.mu.Unlock()

	a.publishView()
}

// Snapshot returns a copy of the current aggregate
func (a *Aggregator) Snapshot() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	view := View{
		Connected:    a.connected,
		Blocks:       make([]core.Block, len(a.blocks)),
		Transactions: make([]core.Transaction, len(a.transactions)),
		BlockCount:   a.blockCount,
		TxCount:      a.txCount,
	}
	copy(view.Blocks, a.blocks)
	copy(view.Transactions, a.transactions)
	if a.latestBlock != nil {
		number := *a.latestBlock
		view.LatestBlock = &number
	}
	return view
}

func (a *Aggregator) setConnected(connected bool) {
	a.mu.Lock()
	changed := a.connected != connected
	a.connected = connected
	a.mu.Unlock()
	if changed {
		a.publishView()
	}
}

func (a *Aggregator) publishView() {
	if a.publisher == nil {
		return
	}
	payload, err := json.Marshal(a.Snapshot())
	if err != nil {
		return
	}
	if err := a.publisher.Publish(TopicView, message.NewMessage(uuid.NewString(), payload)); err != nil {
		a.logger.Debug("failed to publish aggregated view", "err", err)
	}
}

// mergeByHash prepends incoming items to existing, keeps the first
// occurrence of each hash, and truncates to limit. Incoming order wins.
func mergeByHash[T any](incoming, existing []T, limit int, hash func(T) string) []T {
	merged := make([]T, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, list := range [][]T{incoming, existing} {
		for _, item := range list {
			if len(merged) == limit {
				return merged
			}
			key := hash(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, item)
		}
	}
	return merged
}
