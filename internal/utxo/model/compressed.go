package model

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// CompressedIDSize is the width of a compressed transaction id.
const CompressedIDSize = 16

// CompressedID is a 128-bit surrogate of a transaction hash used as an unspent cache key.
// Transaction hashes are uniformly distributed, so a prefix is as good as any hash of them.
type CompressedID [CompressedIDSize]byte

// Compress derives the CompressedID of a transaction hash.
func Compress(txid chainhash.Hash) CompressedID {
	var id CompressedID
	copy(id[:], txid[:CompressedIDSize])
	return id
}

func (id CompressedID) String() string {
	return hex.EncodeToString(id[:])
}

// OutpointKey identifies one output slot by compressed transaction id and output index.
type OutpointKey struct {
	ID    CompressedID
	Index uint32
}

// KeyOf returns the OutpointKey for an output of the given transaction.
func KeyOf(txid chainhash.Hash, index uint32) OutpointKey {
	return OutpointKey{ID: Compress(txid), Index: index}
}
