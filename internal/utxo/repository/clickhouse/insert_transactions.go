package clickhouse

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

const insertTransactionsQuery = `
INSERT INTO utxo_transactions (
	coin,
	network,
	txid,
	block_height,
	timestamp,
	size,
	vsize,
	version,
	locktime,
	input_count,
	output_count,
	is_coinbase,
	input_value,
	output_value,
	fee
) VALUES`

// InsertTransactions stores transaction rows in ClickHouse.
func (r *Repository) InsertTransactions(ctx context.Context, txs []model.Transaction) error {
	return insertRows(ctx, r, "insert_transactions", insertTransactionsQuery, txs, func(tx model.Transaction) []any {
		return []any{
			string(tx.Coin),
			string(tx.Network),
			tx.TxID,
			tx.BlockHeight,
			tx.Timestamp,
			tx.Size,
			tx.VSize,
			tx.Version,
			tx.LockTime,
			tx.InputCount,
			tx.OutputCount,
			tx.IsCoinbase,
			tx.InputValue,
			tx.OutputValue,
			tx.Fee,
		}
	})
}
