package bitcoin

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

type (
	// RPCClient is the subset of the bitcoind RPC interface the connector needs.
	// *rpcclient.Client satisfies it.
	RPCClient interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
	}

	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}

	// ScriptDecoder classifies output scripts and extracts their addresses.
	ScriptDecoder interface {
		Decode(pkScript []byte) (Script, error)
	}
)

// Script is the decoded form of an output script.
type Script struct {
	Type      string
	Asm       string
	Addresses []string
}
