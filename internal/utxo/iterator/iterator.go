// Package iterator yields connected blocks in height order. Blocks are read and their
// outputs cached by one worker pool; a second pool resolves the spent outputs and
// builds the connected blocks.
package iterator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/connector"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/unspent"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/workerpool"
)

// Config tunes the iterator. Zero values fall back to defaults.
type Config struct {
	// Backend defaults to BackendMemory.
	Backend Backend
	// ScratchDir is the parent of the disk cache directory; os.TempDir when empty.
	ScratchDir string
	// ReadWorkers and ConnectWorkers default to runtime.NumCPU().
	ReadWorkers    int
	ConnectWorkers int
	// Capacity bounds how many positions each pool may claim ahead of its consumer.
	Capacity int
	// DiskOptions overrides the scratch store tuning.
	DiskOptions *opt.Options
	// CheckDuplicates logs transaction ids inserted twice into the memory cache.
	CheckDuplicates bool
}

type readBlock struct {
	height uint64
	block  *wire.MsgBlock
}

// ConnectedBlockIter yields connected blocks for heights [0, end) in order.
// Production stops for good at the first error. It is not safe for concurrent use.
type ConnectedBlockIter[B any] struct {
	readers    *workerpool.Ordered[uint64, readBlock]
	connectors *workerpool.Ordered[workerpool.Result[readBlock], B]
	cache      chain.UnspentCache
	cancel     context.CancelFunc
	logger     *zap.Logger

	height uint64
	done   bool
	err    error

	closeOnce sync.Once
	closeErr  error
}

// New dispatches the workers and returns an iterator over heights [0, end).
//
// When the cache cannot be allocated the failure is logged and the returned iterator
// is empty; Err reports the cause.
func New[B, T any](
	ctx context.Context,
	source chain.BlockSource,
	end uint64,
	builder chain.BlockBuilder[B, T],
	cfg Config,
	logger *zap.Logger,
	metrics Metrics,
) *ConnectedBlockIter[B] {
	logger = logger.Named("connected_block_iter")
	if metrics == nil {
		metrics = nopMetrics{}
	}

	cache, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("failed to allocate unspent cache", zap.String("backend", string(cfg.Backend)), zap.Error(err))
		return &ConnectedBlockIter[B]{logger: logger, done: true, err: err}
	}

	ctx, cancel := context.WithCancel(ctx)

	readers := workerpool.NewOrdered(workerpool.Range(0, end), cfg.ReadWorkers, cfg.Capacity,
		func(height uint64) (readBlock, error) {
			started := time.Now()
			block, err := source.Block(ctx, height)
			if err != nil {
				metrics.ObserveReadBlock(err, 0, started)
				return readBlock{}, fmt.Errorf("read block %d: %w", height, err)
			}
			err = cache.InsertBlock(block)
			metrics.ObserveReadBlock(err, len(block.Transactions), started)
			if err != nil {
				return readBlock{}, fmt.Errorf("cache block %d: %w", height, err)
			}
			return readBlock{height: height, block: block}, nil
		})

	connectors := workerpool.NewOrdered[workerpool.Result[readBlock], B](readers, cfg.ConnectWorkers, cfg.Capacity,
		func(r workerpool.Result[readBlock]) (B, error) {
			if r.Err != nil {
				var zero B
				return zero, r.Err
			}
			started := time.Now()
			connected, err := connector.Connect(r.Value.block, r.Value.height, cache, builder)
			metrics.ObserveConnectBlock(err, len(r.Value.block.Transactions), started)
			return connected, err
		})

	logger.Debug("dispatched workers",
		zap.Uint64("end", end),
		zap.String("backend", string(backendOrDefault(cfg.Backend))),
		zap.Int("read_workers", cfg.ReadWorkers),
		zap.Int("connect_workers", cfg.ConnectWorkers),
	)

	return &ConnectedBlockIter[B]{
		readers:    readers,
		connectors: connectors,
		cache:      cache,
		cancel:     cancel,
		logger:     logger,
	}
}

func backendOrDefault(b Backend) Backend {
	if b == "" {
		return BackendMemory
	}
	return b
}

func openCache(cfg Config, logger *zap.Logger) (chain.UnspentCache, error) {
	switch backendOrDefault(cfg.Backend) {
	case BackendMemory:
		var opts []unspent.MemoryOption
		if cfg.CheckDuplicates {
			opts = append(opts, unspent.WithDuplicateCheck())
		}
		return unspent.NewMemory(logger.Named("memory_cache"), opts...), nil
	case BackendDisk:
		return unspent.NewDisk(cfg.ScratchDir, cfg.DiskOptions, logger.Named("disk_cache"))
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Next returns the connected block at the next height. It reports false when the
// source has no more blocks, after a fatal error, or after Close.
func (it *ConnectedBlockIter[B]) Next() (B, bool) {
	var zero B
	if it.done {
		return zero, false
	}

	r, ok := it.connectors.Next()
	if !ok {
		it.finish(nil)
		return zero, false
	}
	if r.Err != nil {
		if errors.Is(r.Err, chain.ErrBlockNotFound) {
			it.logger.Debug("reached the end of the block source", zap.Uint64("height", it.height))
			it.finish(nil)
		} else {
			it.logger.Error("failed to connect block", zap.Uint64("height", it.height), zap.Error(r.Err))
			it.finish(r.Err)
		}
		return zero, false
	}

	it.height++
	return r.Value, true
}

func (it *ConnectedBlockIter[B]) finish(err error) {
	it.done = true
	it.err = err
	it.cancel()
	it.connectors.Stop()
	it.readers.Stop()
}

// All ranges over the remaining blocks keyed by height.
func (it *ConnectedBlockIter[B]) All() iter.Seq2[uint64, B] {
	return func(yield func(uint64, B) bool) {
		for {
			height := it.height
			block, ok := it.Next()
			if !ok || !yield(height, block) {
				return
			}
		}
	}
}

// Height returns the height of the block the next call to Next yields.
func (it *ConnectedBlockIter[B]) Height() uint64 {
	return it.height
}

// Err returns the error that ended iteration early, or the cache allocation failure.
// Running out of blocks is not an error.
func (it *ConnectedBlockIter[B]) Err() error {
	return it.err
}

// Close stops both pools, waits for their workers and releases the cache. It is safe
// to call more than once.
func (it *ConnectedBlockIter[B]) Close() error {
	it.closeOnce.Do(func() {
		it.done = true
		if it.connectors == nil {
			return
		}
		it.cancel()
		it.connectors.Stop()
		it.readers.Stop()
		it.connectors.Wait()
		it.readers.Wait()
		if err := it.cache.Close(); err != nil {
			it.closeErr = fmt.Errorf("close unspent cache: %w", err)
		}
	})
	return it.closeErr
}
