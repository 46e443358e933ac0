package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/okian/fleetpower/internal/adapters/cache"
	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/adapters/history"
	"github.com/okian/fleetpower/internal/adapters/http/api"
	"github.com/okian/fleetpower/internal/adapters/http/swagger"
	"github.com/okian/fleetpower/internal/adapters/provider"
	app "github.com/okian/fleetpower/internal/app"
	"github.com/okian/fleetpower/internal/config"
	"github.com/okian/fleetpower/pkg/logger"
	"github.com/okian/fleetpower/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, cleanup, err := build(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, cfg.MaxLeaderboardLimit),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("provider", cfg.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// build wires the provider, cache, history sink and service from cfg. The
// returned cleanup releases the connections build opened.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, func() {}, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithSnapshotInterval(cfg.SnapshotInterval()),
		app.WithFuelDecimals(cfg.FuelDecimals),
	}

	// Left nil for the mock provider; a typed nil client would not be.
	var caller bind.ContractCaller
	if cfg.Provider != config.ProviderMock {
		c, err := chain.Dial(ctx, cfg.RPCURL)
		if err != nil {
			return nil, cleanup, err
		}
		caller = c
		closers = append(closers, c.Close)

		game, err := chain.NewGameController(cfg.GameContract, c)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opts = append(opts, app.WithUpgradeReader(game))
	}

	p, err := provider.New(cfg, caller)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	if cfg.CacheEnabled {
		c := cache.New(ctx, cfg)
		closers = append(closers, func() { _ = c.Close() })
		p = provider.NewCached(p, c, cfg.CacheTTL())
	}

	sink, err := history.New(ctx, cfg)
	if err != nil {
		// History is optional; scoring continues without it.
		log.Warn(ctx, "history disabled", logger.Error(err))
		sink = history.Noop{}
	}
	opts = append(opts, app.WithHistory(sink))

	return app.New(p, opts...), cleanup, nil
}

// newHandler registers the docs and business routes behind request ids.
func newHandler(ctx context.Context, svc *app.Service, maxLimit int) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, maxLimit).Register(ctx, mux)
	return api.RequestIDMiddleware(mux)
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics copies gauges out of the service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if accounts, ok := stats["rankedAccounts"].(int); ok {
		metrics.UpdateBoardSize(accounts)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
