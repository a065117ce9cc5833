package iterator

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

import "time"

// Backend selects the unspent cache implementation.
type Backend string

const (
	// BackendMemory keeps unspent outputs in process memory.
	BackendMemory Backend = "memory"
	// BackendDisk keeps unspent outputs in a scratch leveldb store.
	BackendDisk Backend = "disk"
)

// Metrics receives pipeline observations. txs is the number of transactions in the block.
type Metrics interface {
	ObserveReadBlock(err error, txs int, started time.Time)
	ObserveConnectBlock(err error, txs int, started time.Time)
}

type nopMetrics struct{}

func (nopMetrics) ObserveReadBlock(error, int, time.Time)    {}
func (nopMetrics) ObserveConnectBlock(error, int, time.Time) {}
