package ingester

import (
	"context"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/safe"
)

// logBlockWriter summarizes each connected block in the log.
type logBlockWriter struct {
	logger *zap.Logger
}

func newLogBlockWriter(logger *zap.Logger) *logBlockWriter {
	return &logBlockWriter{logger: logger}
}

func (w *logBlockWriter) Start(context.Context) {}

func (w *logBlockWriter) Stop() error {
	return nil
}

func (w *logBlockWriter) WriteBlock(ctx context.Context, b *model.ConnectedBlock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.logger.Info("connected block",
		zap.Uint64("height", b.Block.Height),
		zap.String("hash", b.Block.Hash),
		zap.Uint32("txs", b.Block.TXCount),
		zap.Int("inputs", len(b.Inputs)),
		zap.Int("outputs", len(b.Outputs)),
		zap.Stringer("input_value", amount(b.Block.InputValue)),
		zap.Stringer("output_value", amount(b.Block.OutputValue)),
		zap.Stringer("fees", amount(b.Block.Fees)),
	)
	return nil
}

func amount(satoshis uint64) btcutil.Amount {
	v, err := safe.Int64(satoshis)
	if err != nil {
		return btcutil.Amount(math.MaxInt64)
	}
	return btcutil.Amount(v)
}
