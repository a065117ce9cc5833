package unspent

import (
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/wire"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

var _ chain.UnspentCache = (*Disk)(nil)

const scratchDirPattern = "utxo-scratch-"

// Disk is an unspent cache backed by a leveldb store in a private scratch directory.
// It scales past memory at the price of lookup latency. Concurrency control is left
// to leveldb. The directory is removed by Close.
type Disk struct {
	db     *leveldb.DB
	dir    string
	wo     *opt.WriteOptions
	logger *zap.Logger
}

// NewDisk creates a scratch directory under parent (os.TempDir when empty) and opens
// an empty store in it. A nil options value means DiskOptions().
func NewDisk(parent string, options *opt.Options, logger *zap.Logger) (*Disk, error) {
	if options == nil {
		options = DiskOptions()
	}

	dir, err := os.MkdirTemp(parent, scratchDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	db, err := leveldb.OpenFile(dir, options)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("open scratch store %s: %w", dir, err)
	}

	logger.Debug("opened scratch store", zap.String("dir", dir))
	return &Disk{
		db:     db,
		dir:    dir,
		wo:     scratchWriteOptions,
		logger: logger,
	}, nil
}

// Dir returns the scratch directory.
func (d *Disk) Dir() string {
	return d.dir
}

// InsertBlock writes every output of the block as one atomic batch.
func (d *Disk) InsertBlock(block *wire.MsgBlock) error {
	batch := new(leveldb.Batch)
	for _, tx := range block.Transactions {
		id := model.Compress(tx.TxHash())
		for i, out := range tx.TxOut {
			value, err := EncodeOutput(out)
			if err != nil {
				return fmt.Errorf("%w: tx %s output %d: %v", chain.ErrCacheWrite, tx.TxHash(), i, err)
			}
			batch.Put(EncodeKey(model.OutpointKey{ID: id, Index: uint32(i)}), value)
		}
	}

	if err := d.db.Write(batch, d.wo); err != nil {
		return fmt.Errorf("%w: write block %s: %v", chain.ErrCacheWrite, block.BlockHash(), err)
	}
	return nil
}

// Remove takes one output out of the store.
func (d *Disk) Remove(op wire.OutPoint) (wire.TxOut, error) {
	outs, err := d.RemoveAll([]wire.OutPoint{op})
	if err != nil {
		return wire.TxOut{}, err
	}
	return outs[0], nil
}

// RemoveAll reads every requested output from one snapshot, then deletes the keys one
// by one. A failed read counts as not found; a failed delete is fatal. Keys are deleted
// even when some other output turns out to be missing.
func (d *Disk) RemoveAll(ops []wire.OutPoint) ([]wire.TxOut, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	keys := make([][]byte, len(ops))
	for i, op := range ops {
		keys[i] = EncodeKey(outpointKey(op))
	}

	values := d.multiGet(keys)

	for i, key := range keys {
		if err := d.db.Delete(key, d.wo); err != nil {
			return nil, fmt.Errorf("%w: delete %s: %v", chain.ErrCacheWrite, ops[i], err)
		}
	}

	seen := make(map[model.OutpointKey]struct{}, len(ops))
	outs := make([]wire.TxOut, len(ops))
	for i, value := range values {
		key := outpointKey(ops[i])
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: outpoint %s spent twice", chain.ErrMissingOutput, ops[i])
		}
		seen[key] = struct{}{}

		if value == nil {
			return nil, fmt.Errorf("%w: outpoint %s", chain.ErrMissingOutput, ops[i])
		}
		out, err := DecodeOutput(value)
		if err != nil {
			return nil, fmt.Errorf("%w: outpoint %s: %v", chain.ErrMissingOutput, ops[i], err)
		}
		outs[i] = out
	}
	return outs, nil
}

func (d *Disk) multiGet(keys [][]byte) [][]byte {
	values := make([][]byte, len(keys))

	snap, err := d.db.GetSnapshot()
	if err != nil {
		d.logger.Warn("snapshot failed, treating reads as missing", zap.Error(err))
		return values
	}
	defer snap.Release()

	for i, key := range keys {
		value, err := snap.Get(key, nil)
		if err != nil {
			if !errors.Is(err, leveldb.ErrNotFound) {
				d.logger.Warn("read unspent output failed", zap.Binary("key", key), zap.Error(err))
			}
			continue
		}
		values[i] = value
	}
	return values
}

// Len reports the number of stored outputs.
func (d *Disk) Len() (int, error) {
	it := d.db.NewIterator(nil, nil)
	defer it.Release()

	n := 0
	for it.Next() {
		n++
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("iterate scratch store: %w", err)
	}
	return n, nil
}

// Snapshot copies every stored output.
func (d *Disk) Snapshot() (map[model.OutpointKey]wire.TxOut, error) {
	it := d.db.NewIterator(nil, nil)
	defer it.Release()

	result := make(map[model.OutpointKey]wire.TxOut)
	for it.Next() {
		key, err := DecodeKey(it.Key())
		if err != nil {
			return nil, err
		}
		out, err := DecodeOutput(it.Value())
		if err != nil {
			return nil, fmt.Errorf("decode output %s:%d: %w", key.ID, key.Index, err)
		}
		result[key] = out
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate scratch store: %w", err)
	}
	return result, nil
}

// Close closes the store and deletes the scratch directory.
func (d *Disk) Close() error {
	closeErr := d.db.Close()
	removeErr := os.RemoveAll(d.dir)
	if removeErr != nil {
		removeErr = fmt.Errorf("remove scratch dir %s: %w", d.dir, removeErr)
	}
	d.logger.Debug("removed scratch store", zap.String("dir", d.dir))
	return errors.Join(closeErr, removeErr)
}
