package ingester

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Blocks yields connected blocks in height order.
	Blocks interface {
		Next() (*model.ConnectedBlock, bool)
		Err() error
	}
	BlockWriter interface {
		Start(ctx context.Context)
		Stop() error
		WriteBlock(ctx context.Context, b *model.ConnectedBlock) error
	}
	Metrics interface {
		ObserveWriteBlock(err error, height uint64, started time.Time)
		ObserveFlush(err error, blocks int, started time.Time)
	}
	ClickhouseRepository interface {
		InsertBlocks(ctx context.Context, blocks []model.Block) error
		InsertTransactions(ctx context.Context, txs []model.Transaction) error
		InsertTransactionOutputs(ctx context.Context, outputs []model.TransactionOutput) error
		InsertTransactionInputs(ctx context.Context, inputs []model.TransactionInput) error
	}
)
