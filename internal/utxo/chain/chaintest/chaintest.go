// Package chaintest builds small self-consistent block chains for tests.
package chaintest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

// Params are the network parameters used for generated scripts.
var Params = &chaincfg.RegressionNetParams

var genesisTime = time.Unix(1_700_000_000, 0)

// Script returns a pay-to-pubkey-hash script whose hash is derived from seed.
func Script(seed uint64) []byte {
	var hash [20]byte
	binary.LittleEndian.PutUint64(hash[:], seed)
	binary.LittleEndian.PutUint64(hash[8:], ^seed)
	addr, err := btcutil.NewAddressPubKeyHash(hash[:], Params)
	if err != nil {
		panic(err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		panic(err)
	}
	return script
}

// Address returns the encoded address paid by Script(seed).
func Address(seed uint64) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(Script(seed), Params)
	if err != nil || len(addrs) != 1 {
		panic(fmt.Sprintf("script %d has no single address: %v", seed, err))
	}
	return addrs[0].EncodeAddress()
}

// Coinbase returns a coinbase transaction for the height paying the given values.
func Coinbase(height uint64, values ...int64) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	sigScript := make([]byte, 8)
	binary.LittleEndian.PutUint64(sigScript, height)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: math.MaxUint32},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	for i, v := range values {
		tx.AddTxOut(wire.NewTxOut(v, Script(height<<8|uint64(i))))
	}
	return tx
}

// Spend returns a transaction spending the outpoints into outputs of the given values.
// The seed makes the transaction id unique.
func Spend(seed uint64, spends []wire.OutPoint, values ...int64) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, op := range spends {
		tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: op.Hash, Index: op.Index}, []byte{0x51}, nil))
	}
	for i, v := range values {
		tx.AddTxOut(wire.NewTxOut(v, Script(seed<<8|uint64(i))))
	}
	tx.LockTime = uint32(seed)
	return tx
}

// Outpoint references output index of tx.
func Outpoint(tx *wire.MsgTx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: tx.TxHash(), Index: index}
}

// Chain is an ordered list of blocks starting at height 0.
type Chain struct {
	Blocks []*wire.MsgBlock
}

// Append adds a block containing txs on top of the chain.
func (c *Chain) Append(txs ...*wire.MsgTx) *wire.MsgBlock {
	var prev chainhash.Hash
	if n := len(c.Blocks); n > 0 {
		prev = c.Blocks[n-1].BlockHash()
	}
	height := len(c.Blocks)
	block := wire.NewMsgBlock(wire.NewBlockHeader(1, &prev, &chainhash.Hash{}, 0x207fffff, uint32(height)))
	block.Header.Timestamp = genesisTime.Add(time.Duration(height) * 10 * time.Minute)
	for _, tx := range txs {
		_ = block.AddTransaction(tx)
	}
	c.Blocks = append(c.Blocks, block)
	return block
}

// Unspent replays the chain single-threaded and returns the outputs of blocks [0, end)
// that are not spent within [0, end).
func (c *Chain) Unspent(end int) map[model.OutpointKey]wire.TxOut {
	result := make(map[model.OutpointKey]wire.TxOut)
	for _, block := range c.Blocks[:end] {
		for _, tx := range block.Transactions {
			for i, out := range tx.TxOut {
				result[model.KeyOf(tx.TxHash(), uint32(i))] = *out
			}
		}
		for _, tx := range block.Transactions {
			for _, in := range tx.TxIn {
				if chain.IsNullOutpoint(in.PreviousOutPoint) {
					continue
				}
				delete(result, model.KeyOf(in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index))
			}
		}
	}
	return result
}

// Output returns the output referenced by op, searching the whole chain.
func (c *Chain) Output(op wire.OutPoint) (wire.TxOut, bool) {
	for _, block := range c.Blocks {
		for _, tx := range block.Transactions {
			if tx.TxHash() == op.Hash && int(op.Index) < len(tx.TxOut) {
				return *tx.TxOut[op.Index], true
			}
		}
	}
	return wire.TxOut{}, false
}

type coin struct {
	op    wire.OutPoint
	value int64
}

// Random generates a valid chain of n blocks. Every block has a coinbase and a few
// transactions spending random earlier outputs, including outputs created earlier in
// the same block.
func Random(seed int64, n int) *Chain {
	r := rand.New(rand.NewSource(seed))
	c := &Chain{}
	var pool []coin
	var txSeed uint64 = 1 << 32

	take := func() coin {
		i := r.Intn(len(pool))
		picked := pool[i]
		pool[i] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		return picked
	}

	for height := 0; height < n; height++ {
		coinbase := Coinbase(uint64(height), 50_000, 25_000)
		txs := []*wire.MsgTx{coinbase}
		pending := []coin{
			{op: Outpoint(coinbase, 0), value: 50_000},
			{op: Outpoint(coinbase, 1), value: 25_000},
		}

		spendCount := r.Intn(4)
		for i := 0; i < spendCount && len(pool) > 0; i++ {
			inputs := 1 + r.Intn(3)
			var spends []wire.OutPoint
			var total int64
			for j := 0; j < inputs && len(pool) > 0; j++ {
				picked := take()
				spends = append(spends, picked.op)
				total += picked.value
			}

			outputs := 1 + r.Intn(3)
			values := make([]int64, outputs)
			remaining := total
			for j := range values {
				if j == outputs-1 {
					values[j] = remaining
					break
				}
				values[j] = remaining / 2
				remaining -= values[j]
			}

			txSeed++
			tx := Spend(txSeed, spends, values...)
			txs = append(txs, tx)
			for j, v := range values {
				// outputs of this transaction may be spent later in the same block
				pool = append(pool, coin{op: Outpoint(tx, uint32(j)), value: v})
			}
		}

		c.Append(txs...)
		pool = append(pool, pending...)
	}
	return c
}

// Source serves the blocks of a Chain by height.
type Source struct {
	Chain *Chain

	mu    sync.Mutex
	reads map[uint64]int
}

// NewSource returns a BlockSource over c.
func NewSource(c *Chain) *Source {
	return &Source{Chain: c, reads: make(map[uint64]int)}
}

// Block returns the block at height or chain.ErrBlockNotFound.
func (s *Source) Block(ctx context.Context, height uint64) (*wire.MsgBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.reads[height]++
	s.mu.Unlock()

	if height >= uint64(len(s.Chain.Blocks)) {
		return nil, fmt.Errorf("%w: height %d", chain.ErrBlockNotFound, height)
	}
	return s.Chain.Blocks[height], nil
}

// Reads reports how many times height was requested.
func (s *Source) Reads(height uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[height]
}

// ConnectedTx is a transaction together with the outputs its inputs spend.
type ConnectedTx struct {
	Hash   chainhash.Hash
	Inputs []wire.TxOut
}

// ConnectedBlock is the block value produced by Builder.
type ConnectedBlock struct {
	Height uint64
	Hash   chainhash.Hash
	Txs    []*ConnectedTx
}

// Builder is a chain.BlockBuilder that records what it is given.
type Builder struct{}

func (Builder) NewBlock(height uint64, _ *wire.BlockHeader, hash chainhash.Hash) *ConnectedBlock {
	return &ConnectedBlock{Height: height, Hash: hash}
}

func (Builder) NewTx(tx *wire.MsgTx) *ConnectedTx {
	return &ConnectedTx{Hash: tx.TxHash()}
}

func (Builder) AddInput(tx *ConnectedTx, prev wire.TxOut) {
	tx.Inputs = append(tx.Inputs, prev)
}

func (Builder) AddTx(block *ConnectedBlock, tx *ConnectedTx) {
	block.Txs = append(block.Txs, tx)
}

// Expected returns the connected block at height as a sequential replay would build it.
func (c *Chain) Expected(height uint64) *ConnectedBlock {
	block := c.Blocks[height]
	connected := &ConnectedBlock{Height: height, Hash: block.BlockHash()}
	for _, tx := range block.Transactions {
		connectedTx := &ConnectedTx{Hash: tx.TxHash()}
		for _, in := range tx.TxIn {
			if chain.IsNullOutpoint(in.PreviousOutPoint) {
				continue
			}
			out, ok := c.Output(in.PreviousOutPoint)
			if !ok {
				panic(fmt.Sprintf("block %d spends unknown output %s", height, in.PreviousOutPoint))
			}
			connectedTx.Inputs = append(connectedTx.Inputs, out)
		}
		connected.Txs = append(connected.Txs, connectedTx)
	}
	return connected
}
