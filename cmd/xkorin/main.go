package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/xkorin-lab/xkorin/internal/admin"
	corecfg "github.com/xkorin-lab/xkorin/internal/core/config"
	"github.com/xkorin-lab/xkorin/internal/deadletter"
	"github.com/xkorin-lab/xkorin/internal/eventbus"
	"github.com/xkorin-lab/xkorin/internal/eventstore"
	"github.com/xkorin-lab/xkorin/internal/modules"
	"github.com/xkorin-lab/xkorin/internal/modules/analytics"
	"github.com/xkorin-lab/xkorin/internal/modules/assessments"
	"github.com/xkorin-lab/xkorin/internal/modules/gamification"
	"github.com/xkorin-lab/xkorin/internal/modules/messaging"
	"github.com/xkorin-lab/xkorin/internal/server"
)

func main() {
	configPath := flag.String("config", "xkorin.yaml", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("Exiting", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(configPath string) error {
	// 0. Initialize logger at info level until the config says otherwise.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load configuration
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Events.VerboseLogging {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"publishing_mode", cfg.Events.PublishingMode,
		"event_sourcing", cfg.Events.EventSourcingEnabled,
		"dlq", cfg.DLQ.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	stores, err := openStorage(cfg.Database)
	if err != nil {
		return err
	}
	defer stores.Close()

	// 3. Payload contracts
	validator, err := loadContracts(ctx, cfg.Contracts)
	if err != nil {
		return err
	}

	// 4. Bus and dead letter queue. The bus reaches the DLQ service through a
	// SinkFunc because the service redelivers through the bus.
	metrics := eventbus.NewMetricsRecorder(otel.GetMeterProvider())

	var dlq *deadletter.Service
	var sink eventbus.DeadLetterSink
	if cfg.DLQ.Enabled {
		sink = deadletter.SinkFunc(func() eventbus.DeadLetterSink { return dlq })
	}
	bus := eventbus.NewBus(eventbus.Config{
		MaxRetries:         cfg.Events.MaxRetries,
		RetryBaseDelay:     cfg.Events.RetryBaseDelay,
		RetryMaxDelay:      cfg.Events.RetryMaxDelay,
		ProcessingInterval: cfg.Events.ProcessingInterval,
		HandlerTimeout:     cfg.Events.HandlerTimeout,
		MaxPerTick:         cfg.Events.MaxPerTick,
	}, sink, metrics)
	dlq = deadletter.NewService(stores.deadLetters, bus, cfg.DLQ.MaxAutoRetries)

	// 5. Publisher. Without event sourcing nothing is persisted.
	var appender eventbus.Appender
	if cfg.Events.EventSourcingEnabled {
		appender = stores.events
	}
	publisher := eventbus.NewPublisher(bus, appender, validator, eventbus.PublisherConfig{
		Mode:          cfg.Events.PublishingMode,
		MaxChainDepth: cfg.Events.MaxChainDepth,
	}, metrics)

	// 6. Modules. Registration order is delivery order per event type.
	if err := modules.Register(bus,
		gamification.NewService(stores.ledger, publisher),
		messaging.NewService(messaging.LogSink{}, publisher),
		analytics.NewService(),
		assessments.NewService(publisher),
	); err != nil {
		return err
	}

	// 7. Admin API
	adminSvc := admin.NewService(
		dlq,
		eventstore.NewService(stores.events),
		bus,
		eventbus.NewReplayer(stores.events, bus, 0),
		admin.Settings{
			EventSourcing:      cfg.Events.EventSourcingEnabled,
			DeadLetterQueue:    cfg.DLQ.Enabled,
			PublishingMode:     cfg.Events.PublishingMode,
			VerboseLogging:     cfg.Events.VerboseLogging,
			DLQMaxRetries:      cfg.DLQ.MaxAutoRetries,
			DLQRetryInterval:   cfg.DLQ.RetryInterval,
			ProcessingInterval: cfg.Events.ProcessingInterval,
			EventStoreTTLDays:  cfg.EventStore.TTLDays,
		},
	)
	auth := admin.NewAuthenticator([]byte(cfg.Admin.JWTSecret), cfg.Admin.Role)

	srv := server.New(cfg.Server.Addr(), cfg.Server.Mode, stores.health)
	adminSvc.RegisterRoutes(srv.Engine.Group("", auth.Middleware()))

	// 8. Start background loops and the HTTP server.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Start(gctx) })
	if cfg.DLQ.Enabled && cfg.DLQ.AutoRetry {
		g.Go(func() error { return deadletter.NewScheduler(dlq, cfg.DLQ.RetryInterval).Start(gctx) })
	} else {
		slog.Info("Dead letter auto retry disabled by config")
	}
	if cfg.Events.EventSourcingEnabled {
		sweeper := eventstore.NewSweeper(stores.events, cfg.EventStore.TTLDays, cfg.EventStore.SweepInterval, cfg.EventStore.SweepBatchSize)
		g.Go(func() error { return sweeper.Start(gctx) })
	}
	g.Go(func() error { return srv.Run(gctx) })

	return g.Wait()
}
