package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
)

var (
	ingesterWriteBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connect_ingester",
		Name:      "write_blocks_total",
		Help:      "Count of connected blocks handed to the block writer.",
	}, []string{"coin", "network", "status"})

	ingesterHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connect_ingester",
		Name:      "height",
		Help:      "Height of the last connected block handed to the block writer.",
	}, []string{"coin", "network"})

	ingesterFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connect_ingester",
		Name:      "flushes_total",
		Help:      "Count of block batch flushes.",
	}, []string{"coin", "network", "status"})

	ingesterFlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connect_ingester",
		Name:      "flush_duration_seconds",
		Help:      "Duration of block batch flushes.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
	}, []string{"coin", "network", "status"})

	ingesterFlushBlocks = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "connect_ingester",
		Name:      "flush_blocks",
		Help:      "Number of blocks per flushed batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"coin", "network"})
)

// ConnectIngester tracks metrics for writing connected blocks.
type ConnectIngester struct {
	coin    model.Coin
	network model.Network
}

// NewConnectIngester constructs a ConnectIngester metrics collector.
func NewConnectIngester(coin model.Coin, network model.Network) *ConnectIngester {
	return &ConnectIngester{coin: orUnknown(coin), network: orUnknown(network)}
}

// ObserveWriteBlock records a block hand-off and, on success, the height reached.
func (m ConnectIngester) ObserveWriteBlock(err error, height uint64, _ time.Time) {
	status := statusOf(err)
	ingesterWriteBlocksTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	if err == nil {
		ingesterHeight.WithLabelValues(string(m.coin), string(m.network)).Set(float64(height))
	}
}

// ObserveFlush records a batch flush outcome, duration and size.
func (m ConnectIngester) ObserveFlush(err error, blocks int, started time.Time) {
	status := statusOf(err)
	ingesterFlushTotal.WithLabelValues(string(m.coin), string(m.network), status).Inc()
	ingesterFlushDuration.WithLabelValues(string(m.coin), string(m.network), status).Observe(time.Since(started).Seconds())
	if err == nil {
		ingesterFlushBlocks.WithLabelValues(string(m.coin), string(m.network)).Observe(float64(blocks))
	}
}
