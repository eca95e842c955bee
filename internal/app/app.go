// internal/app/app.go

// Package app assembles the launchpad: config, logging, storage, the
// engine components, the harvest scheduler and the HTTP server.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/amm"
	"github.com/rovshanmuradov/token-launchpad/internal/api"
	"github.com/rovshanmuradov/token-launchpad/internal/config"
	"github.com/rovshanmuradov/token-launchpad/internal/curve"
	"github.com/rovshanmuradov/token-launchpad/internal/custody"
	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/harvester"
	"github.com/rovshanmuradov/token-launchpad/internal/launch"
	"github.com/rovshanmuradov/token-launchpad/internal/logger"
	"github.com/rovshanmuradov/token-launchpad/internal/oracle"
	"github.com/rovshanmuradov/token-launchpad/internal/storage"
	"github.com/rovshanmuradov/token-launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/token-launchpad/internal/token"
)

// App is the assembled process.
type App struct {
	cfg       *config.Config
	log       *zap.Logger
	bus       *events.Bus
	server    *api.Server
	harvester *harvester.Harvester
}

// New loads configuration and wires every component.
func New(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		MaxSize:     100,
		MaxBackups:  5,
		MaxAge:      30,
		Compress:    true,
		Development: cfg.DebugLogging,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	bus := events.NewBus(log, cfg.EventBufferSize)

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(cfg.PostgresURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		storage.NewJournal(store, log).Attach(bus)
	} else {
		log.Warn("Running without persistence, no postgres_url configured")
	}

	var priceOracle oracle.Oracle
	if cfg.OracleURL != "" {
		priceOracle = oracle.NewHTTP(cfg.OracleURL, log)
	} else {
		priceOracle = oracle.Static{Price: cfg.StaticPriceUSD}
	}

	registry := token.NewRegistry(log)
	market := curve.NewMarket(priceOracle, log)
	router := amm.NewMemoryRouter(log)
	vault := custody.NewVault(router, bus, log)
	manager := launch.NewManager(registry, market, router, vault, bus, log)

	return &App{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		server:    api.NewServer(manager, market, vault, cfg.ListenAddr, log),
		harvester: harvester.New(vault, cfg.HarvestSchedule, log),
	}, nil
}

// Run serves until ctx is cancelled, then shuts everything down in
// dependency order.
func (a *App) Run(ctx context.Context) error {
	if err := a.harvester.Start(ctx); err != nil {
		return fmt.Errorf("failed to start harvester: %w", err)
	}

	err := a.server.Run(ctx)

	a.harvester.Stop()
	if busErr := a.bus.Shutdown(5 * time.Second); busErr != nil {
		a.log.Warn("Event bus did not drain cleanly", zap.Error(busErr))
	}
	_ = logger.Sync(a.log)

	return err
}

// Logger exposes the process logger for main.
func (a *App) Logger() *zap.Logger {
	return a.log
}
