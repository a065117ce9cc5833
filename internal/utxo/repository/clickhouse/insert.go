package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

// insertRows sends rows as one batch and records the outcome under operation.
// Empty input is a recorded no-op.
func insertRows[T any](
	ctx context.Context,
	r *Repository,
	operation string,
	query string,
	rows []T,
	values func(T) []any,
) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe(operation, firstCoin(rows), firstNetwork(rows), err, start)
	}()

	if len(rows) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s batch: %w", operation, err)
	}

	for _, row := range rows {
		if err = batch.Append(values(row)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append %s row: %w", operation, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func firstCoin[T any](items []T) model.Coin {
	if len(items) == 0 {
		return ""
	}

	switch v := any(items[0]).(type) {
	case model.Block:
		return v.Coin
	case model.Transaction:
		return v.Coin
	case model.TransactionInput:
		return v.Coin
	case model.TransactionOutput:
		return v.Coin
	default:
		return ""
	}
}

func firstNetwork[T any](items []T) model.Network {
	if len(items) == 0 {
		return ""
	}

	switch v := any(items[0]).(type) {
	case model.Block:
		return v.Network
	case model.Transaction:
		return v.Network
	case model.TransactionInput:
		return v.Network
	case model.TransactionOutput:
		return v.Network
	default:
		return ""
	}
}
