// Package main runs the connected block iterator against a bitcoind node and stores
// the connected blocks in ClickHouse.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-connector/internal/metrics"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/bitcoin"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/iterator"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/model"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/repository/clickhouse"
	"github.com/goodnatureofminers/blockinsight7000-connector/internal/utxo/service/ingester"
)

type config struct {
	ClickhouseDSN   string           `long:"clickhouse-dsn" env:"UTXO_CONNECTOR_CLICKHOUSE_DSN" description:"ClickHouse DSN; connected blocks are only logged when empty"`
	Coin            model.Coin       `long:"coin" env:"UTXO_CONNECTOR_COIN" description:"coin name" default:"BTC"`
	Network         model.Network    `long:"network" env:"UTXO_CONNECTOR_NETWORK" description:"network name" required:"true"`
	RPCURL          string           `long:"rpc-url" env:"UTXO_CONNECTOR_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser         string           `long:"rpc-user" env:"UTXO_CONNECTOR_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword     string           `long:"rpc-password" env:"UTXO_CONNECTOR_RPC_PASSWORD" description:"Bitcoin RPC password"`
	RPCRetries      int              `long:"rpc-retries" env:"UTXO_CONNECTOR_RPC_RETRIES" description:"attempts per block read" default:"5"`
	RPCRetryBackoff time.Duration    `long:"rpc-retry-backoff" env:"UTXO_CONNECTOR_RPC_RETRY_BACKOFF" description:"pause before the first retry; doubles per retry" default:"1s"`
	EndHeight       uint64           `long:"end-height" env:"UTXO_CONNECTOR_END_HEIGHT" description:"stop before this height; 0 means the node tip + 1"`
	Cache           iterator.Backend `long:"cache" env:"UTXO_CONNECTOR_CACHE" description:"unspent output cache" choice:"memory" choice:"disk" default:"memory"`
	ScratchDir      string           `long:"scratch-dir" env:"UTXO_CONNECTOR_SCRATCH_DIR" description:"parent directory of the disk cache"`
	ReadWorkers     int              `long:"read-workers" env:"UTXO_CONNECTOR_READ_WORKERS" description:"block readers; defaults to the number of CPUs"`
	ConnectWorkers  int              `long:"connect-workers" env:"UTXO_CONNECTOR_CONNECT_WORKERS" description:"block connectors; defaults to the number of CPUs"`
	Capacity        int              `long:"capacity" env:"UTXO_CONNECTOR_CAPACITY" description:"results buffered per stage; defaults to 10 per worker"`
	CheckDuplicates bool             `long:"check-duplicates" env:"UTXO_CONNECTOR_CHECK_DUPLICATES" description:"warn about transaction ids cached twice"`
	MetricsAddr     string           `long:"metrics-addr" env:"UTXO_CONNECTOR_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("utxo connector failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	logger = logger.With(zap.String("coin", string(cfg.Coin)), zap.String("network", string(cfg.Network)))
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	decoder, err := bitcoin.NewScriptDecoder(cfg.Network)
	if err != nil {
		return fmt.Errorf("init script decoder: %w", err)
	}

	client, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init utxo rpc client: %w", err)
	}
	defer func() {
		client.Shutdown()
		client.WaitForShutdown()
	}()
	source := bitcoin.NewBlockSource(
		bitcoin.NewRPCClient(client, metrics.NewRPCClient(cfg.Coin, cfg.Network)),
		bitcoin.WithRetry(cfg.RPCRetries, cfg.RPCRetryBackoff, logger),
	)

	end, err := endHeight(ctx, source, cfg.EndHeight)
	if err != nil {
		return err
	}

	var repo ingester.ClickhouseRepository
	if cfg.ClickhouseDSN != "" {
		r, err := clickhouse.NewRepository(cfg.ClickhouseDSN, metrics.NewClickhouseRepository())
		if err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		defer func() {
			if err := r.Close(); err != nil {
				logger.Warn("failed to close repository", zap.Error(err))
			}
		}()
		repo = r
	}

	blocks := iterator.New[*model.ConnectedBlock, *bitcoin.TxDraft](
		ctx,
		source,
		end,
		bitcoin.NewBuilder(cfg.Coin, cfg.Network, decoder, logger),
		iterator.Config{
			Backend:         cfg.Cache,
			ScratchDir:      cfg.ScratchDir,
			ReadWorkers:     cfg.ReadWorkers,
			ConnectWorkers:  cfg.ConnectWorkers,
			Capacity:        cfg.Capacity,
			CheckDuplicates: cfg.CheckDuplicates,
		},
		logger,
		metrics.NewConnector(cfg.Coin, cfg.Network),
	)
	defer func() {
		if err := blocks.Close(); err != nil {
			logger.Warn("failed to close connected block iterator", zap.Error(err))
		}
	}()

	svc, err := ingester.NewConnectIngesterService(
		blocks,
		repo,
		metrics.NewConnectIngester(cfg.Coin, cfg.Network),
		cfg.Coin,
		cfg.Network,
		logger,
	)
	if err != nil {
		return err
	}

	logger.Info("connecting blocks", zap.Uint64("end", end), zap.String("cache", string(cfg.Cache)))
	return svc.Run(ctx)
}

type tipSource interface {
	LatestHeight(ctx context.Context) (uint64, error)
}

// endHeight resolves the exclusive end of the run.
func endHeight(ctx context.Context, source tipSource, configured uint64) (uint64, error) {
	if configured > 0 {
		return configured, nil
	}
	tip, err := source.LatestHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch node tip: %w", err)
	}
	return tip + 1, nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	return rpcclient.New(&rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
}
