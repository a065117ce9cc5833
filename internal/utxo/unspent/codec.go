// Package unspent implements the unspent output caches used while connecting blocks:
// an in-memory map and a disk-backed scratch store.
package unspent

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

// KeySize is the width of a disk cache key: compressed txid followed by the output index.
const KeySize = model.CompressedIDSize + 4

// outputValueSize is the width of the little-endian satoshi amount leading a serialized output.
const outputValueSize = 8

// EncodeKey returns the fixed-width store key of an output slot.
func EncodeKey(key model.OutpointKey) []byte {
	b := make([]byte, KeySize)
	copy(b, key.ID[:])
	binary.NativeEndian.PutUint32(b[model.CompressedIDSize:], key.Index)
	return b
}

// DecodeKey parses a key produced by EncodeKey.
func DecodeKey(b []byte) (model.OutpointKey, error) {
	if len(b) != KeySize {
		return model.OutpointKey{}, fmt.Errorf("invalid key length %d", len(b))
	}
	var key model.OutpointKey
	copy(key.ID[:], b[:model.CompressedIDSize])
	key.Index = binary.NativeEndian.Uint32(b[model.CompressedIDSize:])
	return key, nil
}

// EncodeOutput serializes an output in its canonical wire form.
func EncodeOutput(out *wire.TxOut) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(out.SerializeSize())
	if err := wire.WriteTxOut(&buf, 0, 0, out); err != nil {
		return nil, fmt.Errorf("serialize output: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeOutput parses an output serialized by EncodeOutput.
func DecodeOutput(b []byte) (wire.TxOut, error) {
	r := bytes.NewReader(b)

	var value [outputValueSize]byte
	if _, err := io.ReadFull(r, value[:]); err != nil {
		return wire.TxOut{}, fmt.Errorf("read output value: %w", err)
	}
	script, err := wire.ReadVarBytes(r, 0, wire.MaxMessagePayload, "pkScript")
	if err != nil {
		return wire.TxOut{}, fmt.Errorf("read output script: %w", err)
	}
	if r.Len() != 0 {
		return wire.TxOut{}, fmt.Errorf("%d trailing bytes after output", r.Len())
	}

	return wire.TxOut{
		Value:    int64(binary.LittleEndian.Uint64(value[:])),
		PkScript: script,
	}, nil
}

func outpointKey(op wire.OutPoint) model.OutpointKey {
	return model.KeyOf(op.Hash, op.Index)
}
