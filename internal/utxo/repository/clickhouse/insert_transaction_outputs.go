package clickhouse

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

const insertTransactionOutputsQuery = `
INSERT INTO utxo_transaction_outputs (
	coin,
	network,
	block_height,
	block_timestamp,
	txid,
	output_index,
	value,
	script_type,
	script_hex,
	script_asm,
	addresses
) VALUES`

// InsertTransactionOutputs stores transaction outputs in ClickHouse.
func (r *Repository) InsertTransactionOutputs(ctx context.Context, outputs []model.TransactionOutput) error {
	return insertRows(ctx, r, "insert_transaction_outputs", insertTransactionOutputsQuery, outputs, func(output model.TransactionOutput) []any {
		return []any{
			string(output.Coin),
			string(output.Network),
			output.BlockHeight,
			output.BlockTime,
			output.TxID,
			output.Index,
			output.Value,
			output.ScriptType,
			output.ScriptHex,
			output.ScriptAsm,
			nonNil(output.Addresses),
		}
	})
}

// nonNil keeps Array(String) columns from receiving a nil slice.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
