// Package control wires the service together and owns its lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/firstbuy/internal/core/config"
	"github.com/vietddude/firstbuy/internal/indexing/decoder"
	"github.com/vietddude/firstbuy/internal/indexing/health"
	"github.com/vietddude/firstbuy/internal/indexing/notifier"
	"github.com/vietddude/firstbuy/internal/indexing/syncer"
	"github.com/vietddude/firstbuy/internal/indexing/throttle"
	"github.com/vietddude/firstbuy/internal/infra/chain"
	"github.com/vietddude/firstbuy/internal/infra/chain/evm"
	"github.com/vietddude/firstbuy/internal/infra/rpc"
)

// App is the running service: one syncer, its driver and the health server.
type App struct {
	cfg          *config.AppConfig
	checkpoint   *Checkpoint
	rpcClient    *rpc.Client
	syncer       *syncer.Syncer
	driver       *syncer.Driver
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger
}

// NewChainClient builds the node client and adapter from config.
func NewChainClient(cfg *config.AppConfig) (*rpc.Client, chain.Adapter) {
	provider := rpc.NewHTTPProvider(cfg.Chain.Name, cfg.Chain.RPCURL, cfg.Chain.Timeout)
	client := rpc.NewClient(provider, rpc.DefaultRetryConfig)
	adapter := evm.NewEVMAdapter(client, evm.Config{
		BatchSize:   cfg.Chain.BatchSize,
		Concurrency: cfg.Chain.BatchConcurrency,
	})
	return client, adapter
}

// NewApp builds every component. Nothing runs until Start.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	dec, err := decoder.New(cfg.Contract.MethodSignature, cfg.Contract.MethodSelector)
	if err != nil {
		return nil, err
	}

	cp, err := OpenCheckpoint(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, adapter := NewChainClient(cfg)

	var n notifier.Notifier
	if cfg.Notifier.Discord.WebhookURL != "" {
		n = notifier.NewDiscord(notifier.DiscordConfig{
			WebhookURL:    cfg.Notifier.Discord.WebhookURL,
			MentionID:     cfg.Notifier.Discord.MentionID,
			ExplorerURL:   cfg.Chain.ExplorerURL,
			Timeout:       cfg.Notifier.Discord.Timeout,
			Retries:       cfg.Notifier.Discord.Retries,
			RatePerSecond: cfg.Notifier.RatePerSecond,
		}, adapter)
		log.Info("Using Discord notifier")
	} else {
		n = notifier.NewLogNotifier(log)
		log.Info("No webhook configured, first buys are logged only")
	}

	s := syncer.New(syncer.Config{
		Head:       throttle.NewHeadCache(adapter, cfg.Sync.HeadCacheTTL),
		Blocks:     adapter,
		Checkpoint: cp.Store,
		Classifier: decoder.NewClassifier(cfg.Contract.Address, dec),
		Dispatcher: notifier.NewDispatcher(n, notifier.DispatcherConfig{
			BatchSize:  cfg.Notifier.BatchSize,
			BatchPause: cfg.Notifier.BatchPause,
		}),
		Logger:           log,
		WindowSize:       cfg.Sync.WindowSize,
		CatchupThreshold: cfg.Sync.CatchupThreshold,
	})

	healthMon := health.NewMonitor(s, client, cp.Pingers(), health.Config{Staleness: cfg.Sync.Staleness})

	log.Info("Tracking contract",
		"address", cfg.Contract.Address,
		"signature", dec.Signature(),
		"window", cfg.Sync.WindowSize,
		"catchup_threshold", cfg.Sync.CatchupThreshold,
	)

	return &App{
		cfg:          cfg,
		checkpoint:   cp,
		rpcClient:    client,
		syncer:       s,
		driver:       syncer.NewDriver(s, cfg.Sync.Interval, log),
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, cfg.Server.Port),
		log:          log,
	}, nil
}

// Syncer returns the block syncer.
func (a *App) Syncer() *syncer.Syncer {
	return a.syncer
}

// Start launches the health server and the sync loop. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.checkpoint.DB != nil {
		a.checkpoint.DB.StartMetricsCollector(ctx)
	}

	go func() {
		if err := a.driver.Start(ctx); err != nil {
			a.log.Error("Sync loop failed", "error", err)
		}
	}()

	a.log.Info("Health server listening", "port", a.cfg.Server.Port)
	return nil
}

// Stop ends the sync loop, waits within ctx for the pass in flight, then
// releases connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping firstbuy...")

	var errs []error
	if err := a.driver.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("sync loop: %w", err))
	}
	if err := a.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server: %w", err))
	}
	if err := a.rpcClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("rpc client: %w", err))
	}
	if err := a.checkpoint.Close(); err != nil {
		errs = append(errs, fmt.Errorf("checkpoint store: %w", err))
	}
	return errors.Join(errs...)
}
