package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xkorin-lab/xkorin/internal/contract"
	corecfg "github.com/xkorin-lab/xkorin/internal/core/config"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
	"github.com/xkorin-lab/xkorin/internal/core/storage/memory"
	"github.com/xkorin-lab/xkorin/internal/core/storage/postgres"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
	"github.com/xkorin-lab/xkorin/internal/migrations"
	"github.com/xkorin-lab/xkorin/internal/server"
)

type storageSet struct {
	events      storage.EventStore
	deadLetters storage.DeadLetterStore
	ledger      storage.XPLedger
	health      server.HealthChecker
	closeFn     func() error
}

func (s *storageSet) Close() {
	if s.closeFn == nil {
		return
	}
	if err := s.closeFn(); err != nil {
		slog.Error("Failed to close storage", "error", err)
	}
}

func openStorage(cfg corecfg.DatabaseConfig) (*storageSet, error) {
	if cfg.Type == "memory" {
		slog.Warn("Using in-memory storage; events, dead letters and XP are lost on restart")
		return &storageSet{
			events:      memory.NewEventStore(),
			deadLetters: memory.NewDeadLetterStore(),
			ledger:      memory.NewLedger(),
		}, nil
	}

	adapter, err := postgres.NewAdapter(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := migrations.Run(adapter.DB(), cfg.AutoMigrate); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	if err := adapter.Prepare(); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return &storageSet{
		events:      adapter,
		deadLetters: postgres.NewDeadLetterAdapter(adapter.DB()),
		ledger:      postgres.NewLedgerAdapter(adapter.DB()),
		health:      adapter,
		closeFn:     adapter.Close,
	}, nil
}

// loadContracts returns nil when payload validation is disabled.
func loadContracts(ctx context.Context, cfg corecfg.ContractsConfig) (eventbus.PayloadValidator, error) {
	if !cfg.Enabled {
		slog.Info("Payload contracts disabled by config")
		return nil, nil
	}

	source := contract.EmbeddedSource()
	if cfg.Path != "" {
		dir, err := contract.NewDirSource(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open contracts: %w", err)
		}
		source = dir
	}

	registry := contract.NewRegistry(source, false)
	n, err := registry.Preload(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile contracts: %w", err)
	}
	slog.Info("Payload contracts loaded", "count", n, "path", cfg.Path)
	return registry, nil
}
