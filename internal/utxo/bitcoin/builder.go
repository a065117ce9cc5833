// Package bitcoin adapts a bitcoind node to the connector: it reads raw blocks over
// RPC and turns connected blocks into ingestion rows.
package bitcoin

import (
	"encoding/hex"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
	"github.com/goodnatureofminers/blockinsight7000-connector/pkg/safe"
)

var _ chain.BlockBuilder[*model.ConnectedBlock, *TxDraft] = (*Builder)(nil)

// TxDraft collects the rows of one transaction while its inputs are resolved.
type TxDraft struct {
	tx      model.Transaction
	inputs  []model.TransactionInput
	outputs []model.TransactionOutput

	// next is the position of the input the next resolved output belongs to.
	next int
}

// Builder assembles model.ConnectedBlock values from connected transactions.
type Builder struct {
	coin    model.Coin
	network model.Network
	decoder ScriptDecoder
	logger  *zap.Logger
}

// NewBuilder creates a Builder for the coin and network.
func NewBuilder(coin model.Coin, network model.Network, decoder ScriptDecoder, logger *zap.Logger) *Builder {
	return &Builder{
		coin:    coin,
		network: network,
		decoder: decoder,
		logger:  logger.Named("builder"),
	}
}

// NewBlock starts a connected block from its header.
func (b *Builder) NewBlock(height uint64, header *wire.BlockHeader, hash chainhash.Hash) *model.ConnectedBlock {
	return &model.ConnectedBlock{
		Block: model.Block{
			Coin:         b.coin,
			Network:      b.network,
			Height:       height,
			Hash:         hash.String(),
			PreviousHash: header.PrevBlock.String(),
			Timestamp:    header.Timestamp.UTC(),
			Version:      header.Version,
			MerkleRoot:   header.MerkleRoot.String(),
			Bits:         header.Bits,
			Nonce:        header.Nonce,
		},
	}
}

// NewTx decodes the transaction and its outputs. Input values are filled in by AddInput.
func (b *Builder) NewTx(msg *wire.MsgTx) *TxDraft {
	txID := msg.TxHash().String()
	coinbase := len(msg.TxIn) == 1 && chain.IsNullOutpoint(msg.TxIn[0].PreviousOutPoint)

	draft := &TxDraft{
		tx: model.Transaction{
			Coin:        b.coin,
			Network:     b.network,
			TxID:        txID,
			Size:        b.size(txID, "size", msg.SerializeSize()),
			VSize:       b.size(txID, "vsize", virtualSize(msg)),
			Version:     msg.Version,
			LockTime:    msg.LockTime,
			InputCount:  uint32(len(msg.TxIn)),
			OutputCount: uint32(len(msg.TxOut)),
			IsCoinbase:  coinbase,
		},
		inputs:  make([]model.TransactionInput, 0, len(msg.TxIn)),
		outputs: make([]model.TransactionOutput, 0, len(msg.TxOut)),
	}

	for i, in := range msg.TxIn {
		input := model.TransactionInput{
			Coin:         b.coin,
			Network:      b.network,
			TxID:         txID,
			Index:        uint32(i),
			Sequence:     in.Sequence,
			ScriptSigHex: hex.EncodeToString(in.SignatureScript),
			Witness:      witnessHex(in.Witness),
		}
		if chain.IsNullOutpoint(in.PreviousOutPoint) {
			input.IsCoinbase = true
		} else {
			input.PrevTxID = in.PreviousOutPoint.Hash.String()
			input.PrevVout = in.PreviousOutPoint.Index
		}
		draft.inputs = append(draft.inputs, input)
	}

	for i, out := range msg.TxOut {
		script := b.decode(txID, out.PkScript)
		value := satoshis(out.Value)
		draft.tx.OutputValue += value
		draft.outputs = append(draft.outputs, model.TransactionOutput{
			Coin:       b.coin,
			Network:    b.network,
			TxID:       txID,
			Index:      uint32(i),
			Value:      value,
			ScriptType: script.Type,
			ScriptHex:  hex.EncodeToString(out.PkScript),
			ScriptAsm:  script.Asm,
			Addresses:  script.Addresses,
		})
	}

	return draft
}

// AddInput attaches the spent output to the next non-coinbase input.
func (b *Builder) AddInput(draft *TxDraft, prev wire.TxOut) {
	for draft.next < len(draft.inputs) && draft.inputs[draft.next].IsCoinbase {
		draft.next++
	}
	if draft.next >= len(draft.inputs) {
		b.logger.Warn("more spent outputs than inputs", zap.String("tx_id", draft.tx.TxID))
		return
	}

	input := &draft.inputs[draft.next]
	draft.next++

	script := b.decode(draft.tx.TxID, prev.PkScript)
	input.Value = satoshis(prev.Value)
	input.ScriptType = script.Type
	input.Addresses = script.Addresses
	draft.tx.InputValue += input.Value
}

// AddTx stamps the transaction rows with the block position and appends them.
func (b *Builder) AddTx(block *model.ConnectedBlock, draft *TxDraft) {
	height, blockTime := block.Block.Height, block.Block.Timestamp

	draft.tx.BlockHeight = height
	draft.tx.Timestamp = blockTime
	if !draft.tx.IsCoinbase && draft.tx.InputValue > draft.tx.OutputValue {
		draft.tx.Fee = draft.tx.InputValue - draft.tx.OutputValue
	}
	for i := range draft.inputs {
		draft.inputs[i].BlockHeight = height
		draft.inputs[i].BlockTime = blockTime
	}
	for i := range draft.outputs {
		draft.outputs[i].BlockHeight = height
		draft.outputs[i].BlockTime = blockTime
	}

	block.Block.TXCount++
	block.Block.InputValue += draft.tx.InputValue
	block.Block.OutputValue += draft.tx.OutputValue
	block.Block.Fees += draft.tx.Fee

	block.Txs = append(block.Txs, draft.tx)
	block.Inputs = append(block.Inputs, draft.inputs...)
	block.Outputs = append(block.Outputs, draft.outputs...)
}

func (b *Builder) decode(txID string, pkScript []byte) Script {
	script, err := b.decoder.Decode(pkScript)
	if err != nil {
		b.logger.Debug("failed to decode script", zap.String("tx_id", txID), zap.Error(err))
	}
	return script
}

func (b *Builder) size(txID, field string, n int) uint32 {
	size, err := safe.Uint32(n)
	if err != nil {
		b.logger.Warn("transaction size overflow", zap.String("tx_id", txID), zap.String("field", field), zap.Error(err))
		return math.MaxUint32
	}
	return size
}

// virtualSize follows BIP141: weight / 4 rounded up.
func virtualSize(msg *wire.MsgTx) int {
	weight := msg.SerializeSizeStripped()*3 + msg.SerializeSize()
	return (weight + 3) / 4
}

func witnessHex(witness wire.TxWitness) []string {
	if len(witness) == 0 {
		return nil
	}
	items := make([]string, len(witness))
	for i, item := range witness {
		items[i] = hex.EncodeToString(item)
	}
	return items
}

// satoshis clamps negative amounts, which valid blocks never carry, to zero.
func satoshis(v int64) uint64 {
	value, err := safe.Uint64(v)
	if err != nil {
		return 0
	}
	return value
}
