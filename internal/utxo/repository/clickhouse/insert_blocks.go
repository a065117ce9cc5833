package clickhouse

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

const insertBlocksQuery = `
INSERT INTO utxo_blocks (
	coin,
	network,
	height,
	hash,
	previous_hash,
	timestamp,
	version,
	merkleroot,
	bits,
	nonce,
	tx_count,
	input_value,
	output_value,
	fees
) VALUES`

// InsertBlocks stores block rows in ClickHouse.
func (r *Repository) InsertBlocks(ctx context.Context, blocks []model.Block) error {
	return insertRows(ctx, r, "insert_blocks", insertBlocksQuery, blocks, func(block model.Block) []any {
		return []any{
			string(block.Coin),
			string(block.Network),
			block.Height,
			block.Hash,
			block.PreviousHash,
			block.Timestamp,
			block.Version,
			block.MerkleRoot,
			block.Bits,
			block.Nonce,
			block.TXCount,
			block.InputValue,
			block.OutputValue,
			block.Fees,
		}
	})
}
