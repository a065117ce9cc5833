// Package ingester drains connected blocks into a sink.
package ingester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

// ConnectIngesterService writes every connected block an iterator yields.
type ConnectIngesterService struct {
	logger        *zap.Logger
	metrics       Metrics
	blocks        Blocks
	blockWriter   BlockWriter
	progressEvery uint64
}

// NewConnectIngesterService builds a ConnectIngesterService. Without a repository
// blocks are only summarized in the log.
func NewConnectIngesterService(
	blocks Blocks,
	repo ClickhouseRepository,
	metrics Metrics,
	coin model.Coin,
	network model.Network,
	logger *zap.Logger,
) (*ConnectIngesterService, error) {
	logger = logger.With(
		zap.String("coin", string(coin)),
		zap.String("network", string(network)),
	)
	if blocks == nil {
		return nil, errors.New("connected blocks are required")
	}
	if metrics == nil {
		return nil, errors.New("connect ingester metrics is required")
	}

	var bw BlockWriter
	if repo == nil {
		bw = newLogBlockWriter(logger.Named("blockWriter"))
	} else {
		bw = newClickhouseBlockWriter(repo, metrics, logger.Named("blockWriter"))
	}

	return &ConnectIngesterService{
		logger:        logger,
		metrics:       metrics,
		blocks:        blocks,
		blockWriter:   bw,
		progressEvery: progressLogInterval,
	}, nil
}

// Run writes blocks until the iterator is exhausted, a write fails or ctx is
// canceled. Queued blocks are flushed before it returns.
func (s *ConnectIngesterService) Run(ctx context.Context) (err error) {
	bwCtx, bwCancel := context.WithCancel(ctx)
	s.blockWriter.Start(bwCtx)
	defer func() {
		if stopErr := s.blockWriter.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("flush block writer: %w", stopErr))
		}
		bwCancel()
	}()

	var written uint64
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		block, ok := s.blocks.Next()
		if !ok {
			break
		}

		started := time.Now()
		writeErr := s.blockWriter.WriteBlock(ctx, block)
		s.metrics.ObserveWriteBlock(writeErr, block.Block.Height, started)
		if writeErr != nil {
			s.logger.Error("write block failed", zap.Uint64("height", block.Block.Height), zap.Error(writeErr))
			return fmt.Errorf("write block %d: %w", block.Block.Height, writeErr)
		}

		written++
		if s.progressEvery > 0 && written%s.progressEvery == 0 {
			s.logger.Info("progress", zap.Uint64("height", block.Block.Height), zap.Uint64("blocks", written))
		}
	}

	if iterErr := s.blocks.Err(); iterErr != nil {
		return fmt.Errorf("connect blocks: %w", iterErr)
	}
	s.logger.Info("connected blocks ingested", zap.Uint64("blocks", written))
	return nil
}
