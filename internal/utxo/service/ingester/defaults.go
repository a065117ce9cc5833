package ingester

import "time"

const (
	transactionFlushThreshold = 1000
	outputFlushThreshold      = 10_000
	inputFlushThreshold       = 10_000

	blockBatcherCapacity      = 500
	blockBatcherFlushInterval = 30 * time.Second
	blockBatcherRPS           = 20
	insertWorkerCount         = 3

	progressLogInterval uint64 = 10_000
)
