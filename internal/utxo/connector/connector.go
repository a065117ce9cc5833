// Package connector resolves the previous outputs spent by a block and hands the
// connected transactions to a block builder.
package connector

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
)

// Connect takes every output spent by the block out of the cache and builds the
// connected block. Coinbase inputs are skipped. Inputs keep their transaction order
// and transactions keep their block order.
//
// The block's own outputs must already be in the cache, since a transaction may spend
// an output created earlier in the same block.
func Connect[B, T any](
	block *wire.MsgBlock,
	height uint64,
	cache chain.UnspentCache,
	builder chain.BlockBuilder[B, T],
) (B, error) {
	hash := block.BlockHash()

	spent, err := cache.RemoveAll(spentOutpoints(block))
	if err != nil {
		var zero B
		return zero, fmt.Errorf("connect block %d (%s): %w", height, hash, err)
	}

	connected := builder.NewBlock(height, &block.Header, hash)
	pos := 0
	for _, tx := range block.Transactions {
		draft := builder.NewTx(tx)
		for _, in := range tx.TxIn {
			if chain.IsNullOutpoint(in.PreviousOutPoint) {
				continue
			}
			builder.AddInput(draft, spent[pos])
			pos++
		}
		builder.AddTx(connected, draft)
	}
	return connected, nil
}

func spentOutpoints(block *wire.MsgBlock) []wire.OutPoint {
	var ops []wire.OutPoint
	for _, tx := range block.Transactions {
		for _, in := range tx.TxIn {
			if chain.IsNullOutpoint(in.PreviousOutPoint) {
				continue
			}
			ops = append(ops, in.PreviousOutPoint)
		}
	}
	return ops
}
