// Package metrics exposes application metrics collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/chain"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

const namespace = "blockinsight7000"

var (
	connectorReadBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "read_blocks_total",
		Help:      "Count of blocks read from the node and cached.",
	}, []string{"coin", "network", "status"})

	connectorReadBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "read_block_duration_seconds",
		Help:      "Duration of reading a block and caching its outputs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})

	connectorConnectBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "connect_blocks_total",
		Help:      "Count of blocks whose spent outputs were resolved.",
	}, []string{"coin", "network", "status"})

	connectorConnectBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "connect_block_duration_seconds",
		Help:      "Duration of resolving spent outputs and building a connected block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"coin", "network", "status"})

	connectorBlockTransactions = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connector",
		Name:      "block_transactions",
		Help:      "Number of transactions per connected block.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1..8192
	}, []string{"coin", "network"})
)

// Connector tracks metrics for the two connector stages.
type Connector struct {
	coin    model.Coin
	network model.Network
}

// NewConnector constructs a Connector with sane defaults.
func NewConnector(coin model.Coin, network model.Network) *Connector {
	return &Connector{coin: orUnknown(coin), network: orUnknown(network)}
}

// ObserveReadBlock records a block read outcome and duration. Running past the
// node's tip is counted as not_found.
func (m Connector) ObserveReadBlock(err error, _ int, started time.Time) {
	status := statusOf(err)
	connectorReadBlocksTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	connectorReadBlockDuration.WithLabelValues(string(m.coin), string(m.network), status).Observe(time.Since(started).Seconds())
}

// ObserveConnectBlock records a block connection outcome, duration and size.
func (m Connector) ObserveConnectBlock(err error, txs int, started time.Time) {
	status := statusOf(err)
	connectorConnectBlocksTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	connectorConnectBlockDuration.WithLabelValues(string(m.coin), string(m.network), status).Observe(time.Since(started).Seconds())
	if err == nil {
		connectorBlockTransactions.WithLabelValues(string(m.coin), string(m.network)).Observe(float64(txs))
	}
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, chain.ErrBlockNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func orUnknown[T ~string](v T) T {
	if v == "" {
		return "unknown"
	}
	return v
}
