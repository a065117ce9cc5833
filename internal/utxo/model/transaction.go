package model

import "time"

// Transaction represents a blockchain transaction with aggregated metadata.
type Transaction struct {
	Coin        Coin
	Network     Network
	TxID        string
	BlockHeight uint64
	Timestamp   time.Time
	Size        uint32
	VSize       uint32
	Version     int32
	LockTime    uint32
	InputCount  uint32
	OutputCount uint32
	IsCoinbase  bool
	InputValue  uint64
	OutputValue uint64
	Fee         uint64
}

// TransactionInput describes a spend of a previous transaction output.
// For coinbase inputs PrevTxID is empty and Value is zero.
type TransactionInput struct {
	Coin         Coin
	Network      Network
	BlockHeight  uint64
	BlockTime    time.Time
	TxID         string
	Index        uint32
	PrevTxID     string
	PrevVout     uint32
	Sequence     uint32
	IsCoinbase   bool
	Value        uint64
	ScriptSigHex string
	Witness      []string
	ScriptType   string
	Addresses    []string
}

// TransactionOutput represents an output produced by a transaction.
type TransactionOutput struct {
	Coin        Coin
	Network     Network
	BlockHeight uint64
	BlockTime   time.Time
	TxID        string
	Index       uint32
	Value       uint64
	ScriptType  string
	ScriptHex   string
	ScriptAsm   string
	Addresses   []string
}
