package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dkovalev/crypto_score_bot/internal/config"
	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/command"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/exchange"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/logger"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/snapshot"
	"github.com/dkovalev/crypto_score_bot/internal/infrastructure/storage"
	"github.com/dkovalev/crypto_score_bot/internal/usecase"
	"github.com/dkovalev/crypto_score_bot/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	// 2. Init Logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange: live adapter with credentials, paper fills without.
	var ex domain.Exchange
	simulated := !cfg.HasCredentials()
	if simulated {
		log.Warn("No API credentials configured, running in simulation mode")
		ex = exchange.NewSimExchange(log)
	} else {
		ex = exchange.NewBybitAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.BaseURL, log)
	}

	// 5. Init Services
	scoring := usecase.NewScoringService(cfg.Trading.Timeframes, log)
	scoring.SetSignalParameters(cfg.Signals.LongThreshold, cfg.Signals.ShortThreshold, cfg.Signals.StrongMargin)

	// Resume adaptive calibration where the last run left off.
	if weights, err := store.LoadWeights(context.Background()); err != nil {
		log.Error("Failed to load persisted weights", zap.Error(err))
	} else if weights != nil {
		scoring.RestoreWeights(weights)
		log.Info("Restored persisted component weights", zap.Int("count", len(weights)))
	}

	risk := usecase.NewRiskGate(cfg.Risk, log)

	queue := command.NewQueue(0)
	sink, err := snapshot.NewFileSink(cfg.Daemon.SnapshotDir)
	if err != nil {
		log.Fatal("Failed to init snapshot sink", zap.Error(err))
	}

	daemon := usecase.NewDaemon(usecase.DaemonConfig{
		Symbol:           cfg.Trading.Symbol,
		Interval:         cfg.Trading.Interval,
		Timeframes:       cfg.Trading.Timeframes,
		HistoryLimit:     cfg.Trading.HistoryLimit,
		PollInterval:     cfg.Daemon.PollInterval(),
		CooldownWindow:   cfg.Daemon.CooldownWindow(),
		ReversalWindow:   cfg.Daemon.ReversalWindow(),
		MaxSameDirection: cfg.Daemon.MaxSameDirection,
		SyncEveryTicks:   cfg.Daemon.SyncEveryTicks,
		ErrorBackoff:     cfg.Daemon.ErrorBackoff(),
		Balance:          cfg.Trading.Balance,
		Simulated:        simulated,
	}, ex, scoring, risk, queue, sink, store, store, log)

	// 6. Init Web Server (JSON API + websocket command channel)
	wsHandler := command.NewWSHandler(queue, log)
	server := web.NewServer(cfg.Server.Addr, daemon, scoring, risk, store, queue, wsHandler, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Run the daemon loop until SIGINT/SIGTERM or a SHUTDOWN command.
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	daemon.Run(ctx)

	log.Info("Shutting down...")
	server.Shutdown(context.Background())
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		return logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	}
	return logger.NewLogger(cfg.Logging.Level)
}

