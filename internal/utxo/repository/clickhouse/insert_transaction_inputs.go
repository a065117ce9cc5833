package clickhouse

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

const insertTransactionInputsQuery = `
INSERT INTO utxo_transaction_inputs (
	coin,
	network,
	block_height,
	block_timestamp,
	txid,
	input_index,
	prev_txid,
	prev_vout,
	sequence,
	is_coinbase,
	value,
	script_sig_hex,
	witness,
	script_type,
	addresses
) VALUES`

// InsertTransactionInputs stores transaction inputs, with the values and addresses of
// the outputs they spend, in ClickHouse.
func (r *Repository) InsertTransactionInputs(ctx context.Context, inputs []model.TransactionInput) error {
	return insertRows(ctx, r, "insert_transaction_inputs", insertTransactionInputsQuery, inputs, func(input model.TransactionInput) []any {
		return []any{
			string(input.Coin),
			string(input.Network),
			input.BlockHeight,
			input.BlockTime,
			input.TxID,
			input.Index,
			input.PrevTxID,
			input.PrevVout,
			input.Sequence,
			input.IsCoinbase,
			input.Value,
			input.ScriptSigHex,
			nonNil(input.Witness),
			input.ScriptType,
			nonNil(input.Addresses),
		}
	})
}
