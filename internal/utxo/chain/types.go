// Package chain defines interfaces and errors shared between the connector components.
package chain

import (
	"context"
	"errors"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

var (
	// ErrBlockNotFound reports that a block source has nothing at the requested height.
	// It ends a block sequence and is not a corruption.
	ErrBlockNotFound = errors.New("block not found")
	// ErrMissingOutput reports that a spent output was never recorded or was already spent.
	// It means malformed or out-of-order chain data and is always fatal.
	ErrMissingOutput = errors.New("previous output not found")
	// ErrCacheWrite reports a failed write or delete in the unspent cache. It is fatal.
	ErrCacheWrite = errors.New("unspent cache write failed")
)

type (
	// BlockSource reads raw blocks by height.
	BlockSource interface {
		Block(ctx context.Context, height uint64) (*wire.MsgBlock, error)
	}

	// UnspentCache tracks outputs that have been created but not yet spent.
	UnspentCache interface {
		// InsertBlock records every output of every transaction in the block.
		InsertBlock(block *wire.MsgBlock) error
		// Remove atomically takes one output out of the cache.
		Remove(op wire.OutPoint) (wire.TxOut, error)
		// RemoveAll takes the given outputs out of the cache and returns them in order.
		RemoveAll(ops []wire.OutPoint) ([]wire.TxOut, error)
		// Len reports the number of live entries.
		Len() (int, error)
		// Snapshot returns every live output keyed by outpoint.
		Snapshot() (map[model.OutpointKey]wire.TxOut, error)
		Close() error
	}

	// BlockBuilder assembles caller-defined connected block (B) and transaction (T) values.
	// The connector calls AddInput once per non-coinbase input, in input order, and AddTx
	// once per transaction, in block order. B and T are usually pointers.
	BlockBuilder[B, T any] interface {
		NewBlock(height uint64, header *wire.BlockHeader, hash chainhash.Hash) B
		NewTx(tx *wire.MsgTx) T
		AddInput(tx T, prev wire.TxOut)
		AddTx(block B, tx T)
	}
)

// IsNullOutpoint reports whether op is the null outpoint referenced by coinbase inputs.
func IsNullOutpoint(op wire.OutPoint) bool {
	return op.Index == math.MaxUint32 && op.Hash == (chainhash.Hash{})
}
