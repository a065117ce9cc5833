package ingester

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/batcher"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/workerpool"
)

type insertJob func(ctx context.Context) error

type clickhouseBlockWriter struct {
	repo         ClickhouseRepository
	metrics      Metrics
	logger       *zap.Logger
	workerCount  int
	blockBatcher *batcher.Batcher[*model.ConnectedBlock]
}

func newClickhouseBlockWriter(repo ClickhouseRepository, metrics Metrics, logger *zap.Logger) *clickhouseBlockWriter {
	w := &clickhouseBlockWriter{
		repo:        repo,
		metrics:     metrics,
		logger:      logger,
		workerCount: insertWorkerCount,
	}
	w.blockBatcher = batcher.New[*model.ConnectedBlock](
		logger.Named("blockBatcher"),
		w.flush,
		blockBatcherCapacity,
		blockBatcherFlushInterval,
		blockBatcherRPS,
	)
	return w
}

func (w *clickhouseBlockWriter) Start(ctx context.Context) {
	w.blockBatcher.Start(ctx)
}

func (w *clickhouseBlockWriter) Stop() error {
	return w.blockBatcher.Stop()
}

func (w *clickhouseBlockWriter) WriteBlock(ctx context.Context, b *model.ConnectedBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return w.blockBatcher.Add(ctx, b)
}

// flush stores the rows of a batch. Block rows go in last, once every
// transaction, output and input row of the batch is stored.
func (w *clickhouseBlockWriter) flush(ctx context.Context, connected []*model.ConnectedBlock) (err error) {
	started := time.Now()
	defer func() {
		w.metrics.ObserveFlush(err, len(connected), started)
	}()
	if len(connected) == 0 {
		return nil
	}

	blocks := make([]model.Block, 0, len(connected))
	var (
		txs     []model.Transaction
		outputs []model.TransactionOutput
		inputs  []model.TransactionInput
	)
	for _, block := range connected {
		blocks = append(blocks, block.Block)
		txs = append(txs, block.Txs...)
		outputs = append(outputs, block.Outputs...)
		inputs = append(inputs, block.Inputs...)
	}
	first, last := blocks[0].Height, blocks[len(blocks)-1].Height

	var jobs []insertJob
	jobs = appendChunks(jobs, txs, transactionFlushThreshold, w.repo.InsertTransactions)
	jobs = appendChunks(jobs, outputs, outputFlushThreshold, w.repo.InsertTransactionOutputs)
	jobs = appendChunks(jobs, inputs, inputFlushThreshold, w.repo.InsertTransactionInputs)

	err = workerpool.Process(ctx, w.workerCount, jobs, func(ctx context.Context, job insertJob) error {
		return job(ctx)
	}, nil)
	if err != nil {
		return fmt.Errorf("insert rows of blocks %d-%d: %w", first, last, err)
	}

	if err = w.repo.InsertBlocks(ctx, blocks); err != nil {
		return fmt.Errorf("insert blocks %d-%d: %w", first, last, err)
	}

	w.logger.Debug("flushed blocks",
		zap.Uint64("from", first),
		zap.Uint64("to", last),
		zap.Int("txs", len(txs)),
		zap.Int("outputs", len(outputs)),
		zap.Int("inputs", len(inputs)),
	)
	return nil
}

func appendChunks[T any](jobs []insertJob, rows []T, size int, insert func(context.Context, []T) error) []insertJob {
	for start := 0; start < len(rows); start += size {
		chunk := rows[start:min(start+size, len(rows))]
		jobs = append(jobs, func(ctx context.Context) error {
			return insert(ctx, chunk)
		})
	}
	return jobs
}
