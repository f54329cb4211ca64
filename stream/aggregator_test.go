package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabbai/adapulse/core"
)

func makeBlocks(numbers ...uint64) []core.Block {
	blocks := make([]core.Block, 0, len(numbers))
	for _, n := range numbers {
		blocks = append(blocks, core.Block{
			Hash:   fmt.Sprintf("block-%d", n),
			Number: n,
		})
	}
	return blocks
}

func makeTxs(ids ...int) []core.Transaction {
	txs := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, core.Transaction{Hash: fmt.Sprintf("tx-%d", id)})
	}
	return txs
}

func TestAggregatorApplyUpdate(t *testing.T) {
	agg := NewAggregator()

	agg.Apply(core.StreamMessage{
		Type:         core.StreamMessageUpdate,
		Blocks:       makeBlocks(100, 99),
		Transactions: makeTxs(1, 2, 3),
	})

	view := agg.Snapshot()
	require.Len(t, view.Blocks, 2)
	assert.Equal(t, "block-100", view.Blocks[0].Hash)
	assert.Len(t, view.Transactions, 3)
	assert.Equal(t, uint64(2), view.BlockCount)
	assert.Equal(t, uint64(3), view.TxCount)
	require.NotNil(t, view.LatestBlock)
	assert.Equal(t, uint64(100), *view.LatestBlock)
}

func TestAggregatorIgnoresNonUpdate(t *testing.T) {
	agg := NewAggregator()

	agg.Apply(core.StreamMessage{Type: "ping", Blocks: makeBlocks(1)})

	view := agg.Snapshot()
	assert.Empty(t, view.Blocks)
	assert.Zero(t, view.BlockCount)
	assert.Nil(t, view.LatestBlock)
}

func TestAggregatorDedupByHash(t *testing.T) {
	agg := NewAggregator()

	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(5, 4)})
	// Block 5 arrives again alongside a new block
	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(6, 5)})

	view := agg.Snapshot()
	require.Len(t, view.Blocks, 3)
	assert.Equal(t, "block-6", view.Blocks[0].Hash)
	assert.Equal(t, "block-5", view.Blocks[1].Hash)
	assert.Equal(t, "block-4", view.Blocks[2].Hash)
	// Counters track received items, duplicates included
	assert.Equal(t, uint64(4), view.BlockCount)
}

func TestAggregatorWindowBounds(t *testing.T) {
	agg := NewAggregator(WithWindows(3, 2))

	for i := 0; i < 5; i++ {
		agg.Apply(core.StreamMessage{
			Type:         core.StreamMessageUpdate,
			Blocks:       makeBlocks(uint64(i)),
			Transactions: makeTxs(i),
		})
	}

	view := agg.Snapshot()
	require.Len(t, view.Blocks, 3)
	assert.Equal(t, "block-4", view.Blocks[0].Hash)
	assert.Equal(t, "block-2", view.Blocks[2].Hash)
	assert.Len(t, view.Transactions, 2)
	// Totals keep growing past the window
	assert.Equal(t, uint64(5), view.BlockCount)
	assert.Equal(t, uint64(5), view.TxCount)
}

func TestAggregatorLatestBlockOverwrites(t *testing.T) {
	agg := NewAggregator()

	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(10)})
	// A lower number still wins: the stream is authoritative about ordering
	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(7)})

	view := agg.Snapshot()
	require.NotNil(t, view.LatestBlock)
	assert.Equal(t, uint64(7), *view.LatestBlock)
}

func TestAggregatorTxOnlyUpdateKeepsLatestBlock(t *testing.T) {
	agg := NewAggregator()

	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(42)})
	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Transactions: makeTxs(1)})

	view := agg.Snapshot()
	require.NotNil(t, view.LatestBlock)
	assert.Equal(t, uint64(42), *view.LatestBlock)
}

func TestAggregatorSnapshotIsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Apply(core.StreamMessage{Type: core.StreamMessageUpdate, Blocks: makeBlocks(1)})

	view := agg.Snapshot()
	view.Blocks[0].Hash = "mutated"

	assert.Equal(t, "block-1", agg.Snapshot().Blocks[0].Hash)
}

func TestAggregatorConnectedFlag(t *testing.T) {
	agg := NewAggregator()
	assert.False(t, agg.Snapshot().Connected)

	agg.setConnected(true)
	assert.True(t, agg.Snapshot().Connected)

	agg.setConnected(false)
	assert.False(t, agg.Snapshot().Connected)
}
