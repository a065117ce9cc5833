package unspent

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/dolthub/swiss"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

var _ chain.UnspentCache = (*Memory)(nil)

const initialMemoryEntries = 1 << 20

// txOutputs holds the outputs of one transaction. A nil slot has been spent.
type txOutputs struct {
	mu    sync.Mutex
	slots []*wire.TxOut
	live  int
}

// take removes the slot at index. It returns the output, or nil when the slot is
// absent, and whether this call spent the last live slot.
func (t *txOutputs) take(index uint32) (*wire.TxOut, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint64(index) >= uint64(len(t.slots)) {
		return nil, false
	}
	out := t.slots[index]
	if out == nil {
		return nil, false
	}
	t.slots[index] = nil
	t.live--
	return out, t.live == 0
}

type newEntry struct {
	id      model.CompressedID
	outputs *txOutputs
}

// Memory is an in-memory unspent cache. The outer map is guarded by one mutex that is
// held only for whole-entry inserts, lookups and removals; slot removal inside an entry
// takes the entry's own mutex, so spends of different transactions do not contend.
type Memory struct {
	mu      sync.Mutex
	entries *swiss.Map[model.CompressedID, *txOutputs]

	checkDuplicates bool
	logger          *zap.Logger
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithDuplicateCheck logs a warning when a block inserts a transaction id that is
// already present. It costs one extra lookup per transaction.
func WithDuplicateCheck() MemoryOption {
	return func(m *Memory) {
		m.checkDuplicates = true
	}
}

// NewMemory creates an empty in-memory unspent cache.
func NewMemory(logger *zap.Logger, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: swiss.NewMap[model.CompressedID, *txOutputs](initialMemoryEntries),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InsertBlock builds the entries of every transaction in the block and merges them
// into the map under a single lock acquisition.
func (m *Memory) InsertBlock(block *wire.MsgBlock) error {
	batch := make([]newEntry, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		if len(tx.TxOut) == 0 {
			continue
		}
		slots := make([]*wire.TxOut, len(tx.TxOut))
		for i, out := range tx.TxOut {
			o := *out
			slots[i] = &o
		}
		batch = append(batch, newEntry{
			id:      model.Compress(tx.TxHash()),
			outputs: &txOutputs{slots: slots, live: len(slots)},
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range batch {
		if m.checkDuplicates && m.entries.Has(e.id) {
			m.logger.Warn("found duplicate transaction id", zap.Stringer("id", e.id))
		}
		m.entries.Put(e.id, e.outputs)
	}
	return nil
}

// Remove takes one output out of the cache. The entry is erased as soon as its last
// slot is spent.
func (m *Memory) Remove(op wire.OutPoint) (wire.TxOut, error) {
	id := model.Compress(op.Hash)

	m.mu.Lock()
	entry, ok := m.entries.Get(id)
	m.mu.Unlock()
	if !ok {
		return wire.TxOut{}, fmt.Errorf("%w: transaction %s not in cache", chain.ErrMissingOutput, op.Hash)
	}

	out, emptied := entry.take(op.Index)
	if emptied {
		m.mu.Lock()
		// a duplicate id may have replaced the entry in the meantime
		if current, ok := m.entries.Get(id); ok && current == entry {
			m.entries.Delete(id)
		}
		m.mu.Unlock()
	}
	if out == nil {
		return wire.TxOut{}, fmt.Errorf("%w: outpoint %s", chain.ErrMissingOutput, op)
	}
	return *out, nil
}

// RemoveAll removes the outputs one by one and stops at the first missing one.
// Outputs removed before the failure stay removed.
func (m *Memory) RemoveAll(ops []wire.OutPoint) ([]wire.TxOut, error) {
	outs := make([]wire.TxOut, 0, len(ops))
	for _, op := range ops {
		out, err := m.Remove(op)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Len reports the number of transactions that still have live outputs.
func (m *Memory) Len() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries.Count(), nil
}

// Snapshot copies every live output.
func (m *Memory) Snapshot() (map[model.OutpointKey]wire.TxOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[model.OutpointKey]wire.TxOut)
	m.entries.Iter(func(id model.CompressedID, entry *txOutputs) bool {
		entry.mu.Lock()
		for i, out := range entry.slots {
			if out != nil {
				result[model.OutpointKey{ID: id, Index: uint32(i)}] = *out
			}
		}
		entry.mu.Unlock()
		return false
	})
	return result, nil
}

// Close drops every entry.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Clear()
	return nil
}
