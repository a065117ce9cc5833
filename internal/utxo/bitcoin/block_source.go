package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/clock"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/safe"
)

const maxRetryBackoff = time.Minute

var _ chain.BlockSource = (*BlockSource)(nil)

// BlockSource implements chain.BlockSource over a bitcoind node.
type BlockSource struct {
	rpc      RPCClient
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   *zap.Logger
}

// BlockSourceOption configures a BlockSource.
type BlockSourceOption func(*BlockSource)

// WithRetry makes up to attempts reads of a block, pausing backoff before the
// first retry and doubling the pause after that. Heights above the tip are not retried.
func WithRetry(attempts int, backoff time.Duration, logger *zap.Logger) BlockSourceOption {
	return func(s *BlockSource) {
		s.attempts = max(attempts, 1)
		s.backoff = backoff
		s.logger = logger.Named("block_source")
	}
}

// NewBlockSource creates a BlockSource reading from rpc. Without WithRetry every
// read is attempted once.
func NewBlockSource(rpc RPCClient, opts ...BlockSourceOption) *BlockSource {
	s := &BlockSource{
		rpc:      rpc,
		attempts: 1,
		sleep:    clock.SleepWithContext,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LatestHeight returns the height of the node's best block.
func (s *BlockSource) LatestHeight(_ context.Context) (uint64, error) {
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get block count: %w", err)
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// Block returns the raw block at height. Heights above the node's tip yield
// chain.ErrBlockNotFound.
func (s *BlockSource) Block(ctx context.Context, height uint64) (*wire.MsgBlock, error) {
	for attempt := 1; ; attempt++ {
		block, err := s.block(ctx, height)
		if err == nil || attempt >= s.attempts || errors.Is(err, chain.ErrBlockNotFound) || ctx.Err() != nil {
			return block, err
		}

		pause := clock.Backoff(s.backoff, maxRetryBackoff, attempt)
		s.logger.Warn("block read failed, retrying",
			zap.Uint64("height", height),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", pause),
			zap.Error(err),
		)
		if err := s.sleep(ctx, pause); err != nil {
			return nil, err
		}
	}
}

func (s *BlockSource) block(ctx context.Context, height uint64) (*wire.MsgBlock, error) {
	rpcHeight, err := safe.Int64(height)
	if err != nil {
		return nil, fmt.Errorf("%w: height %d exceeds rpc limit", chain.ErrBlockNotFound, height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := s.rpc.GetBlockHash(rpcHeight)
	if err != nil {
		if isOutOfRange(err) {
			return nil, fmt.Errorf("%w: height %d: %v", chain.ErrBlockNotFound, height, err)
		}
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block, err := s.rpc.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}
	return block, nil
}

// isOutOfRange reports the error bitcoind returns for a height above its tip.
func isOutOfRange(err error) bool {
	var rpcErr *btcjson.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCInvalidParameter
}
