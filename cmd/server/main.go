package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "hermes/api/http"
	"hermes/domain/wallet"
	"hermes/infra/config"
	"hermes/infra/kafka"
	"hermes/infra/logging"
	"hermes/infra/metrics"
	"hermes/infra/outbox"
	"hermes/infra/wal"
	"hermes/jobs/broadcaster"
	"hermes/service"
	"hermes/snapshot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// ---------------- Durability ----------------

	commandLog, err := wal.Open(wal.Config{
		Dir:         cfg.WAL.Dir,
		SegmentSize: cfg.WAL.SegmentSize,
	})
	if err != nil {
		logger.Fatal("wal open failed", zap.Error(err))
	}
	defer commandLog.Close()

	eventOutbox, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		logger.Fatal("outbox open failed", zap.Error(err))
	}
	defer eventOutbox.Close()

	// ---------------- Engine ----------------

	var feed *kafka.Producer
	if cfg.Kafka.Enabled {
		feed = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic)
		defer feed.Close()
	}

	m := metrics.New()
	engine := service.NewEngine(
		service.NewRegistry(),
		wallet.NewManager(),
		commandLog,
		eventOutbox,
		feed,
		m,
		logger,
	)

	// ---------------- Recovery ----------------

	snap, err := snapshot.Load(cfg.Snapshot.Dir)
	if err != nil {
		logger.Fatal("snapshot load failed", zap.Error(err))
	}
	if snap != nil {
		if err := engine.RestoreSnapshot(snap); err != nil {
			logger.Fatal("snapshot restore failed", zap.Error(err))
		}
		logger.Info("snapshot restored", zap.Uint64("seq", snap.Seq))
	}
	if err := engine.ReplayWAL(cfg.WAL.Dir); err != nil {
		logger.Fatal("wal replay failed", zap.Error(err))
	}

	// ---------------- Configured markets ----------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, mc := range cfg.Markets {
		pair, mcfg := mc.MarketConfig()
		if _, err := engine.CreateMarket(ctx, pair, mcfg); err != nil {
			if errors.Is(err, service.ErrMarketExists) {
				continue
			}
			logger.Fatal("market create failed", zap.String("pair", pair.String()), zap.Error(err))
		}
		logger.Info("market opened", zap.String("pair", pair.String()))
	}

	// ---------------- Background jobs ----------------

	engine.StartSnapshotJob(ctx, cfg.Snapshot.Dir, cfg.Snapshot.Interval.Std())

	if cfg.Kafka.Enabled {
		bc, err := broadcaster.New(
			eventOutbox,
			cfg.Kafka.Brokers,
			cfg.Kafka.EventTopic,
			cfg.Kafka.DrainInterval.Std(),
			logger,
		)
		if err != nil {
			logger.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	// ---------------- HTTP ----------------

	server := api.NewServer(engine, m, logger)
	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server exited", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
