// Package model defines domain models for connected block ingestion.
package model

import "time"

// Block represents a connected block header row.
type Block struct {
	Coin         Coin
	Network      Network
	Height       uint64
	Hash         string
	PreviousHash string
	Timestamp    time.Time
	Version      int32
	MerkleRoot   string
	Bits         uint32
	Nonce        uint32
	TXCount      uint32
	InputValue   uint64
	OutputValue  uint64
	Fees         uint64
}

// ConnectedBlock groups a block with its transactions and their inputs/outputs.
// Every non-coinbase input carries the value and script of the output it spends.
type ConnectedBlock struct {
	Block   Block
	Txs     []Transaction
	Outputs []TransactionOutput
	Inputs  []TransactionInput
}
