package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kestrelsec/aegis/internal/api/routes"
	"github.com/kestrelsec/aegis/internal/classifier"
	"github.com/kestrelsec/aegis/internal/config"
	"github.com/kestrelsec/aegis/internal/database"
	"github.com/kestrelsec/aegis/internal/dispatch"
	"github.com/kestrelsec/aegis/internal/enforcement"
	"github.com/kestrelsec/aegis/internal/ledger"
	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/metrics"
	"github.com/kestrelsec/aegis/internal/notify"
	"github.com/kestrelsec/aegis/internal/pipeline"
	"github.com/kestrelsec/aegis/internal/policy"
	"github.com/kestrelsec/aegis/internal/server"
	"github.com/kestrelsec/aegis/internal/store"
	"github.com/kestrelsec/aegis/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(true, nil)
		logger.Log().WithError(err).Fatal("failed to load configuration")
	}

	logger.Init(cfg.Environment == "development", logOutput(cfg))
	log := logger.Log()
	log.WithField("version", version.Full()).Infof("%s starting", version.Name)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	actions := store.NewActionStore(db)
	endpoints := store.NewEndpointStore(db)
	notifier := notify.New(db, cfg.NotifyURLs)

	var cls classifier.Classifier
	if cfg.ClassifierURL != "" {
		cls = classifier.NewHTTPClient(cfg.ClassifierURL)
		log.WithField("url", cfg.ClassifierURL).Info("using remote classifier")
	} else {
		cls = classifier.Keyword{}
		log.Info("using built-in keyword classifier")
	}

	var led ledger.Ledger
	if cfg.LedgerMode == "fabric" {
		led = ledger.NewFabricCLI(cfg.FabricContainer, cfg.FabricOrderer, cfg.FabricChannel, cfg.FabricChaincode)
		log.WithField("channel", cfg.FabricChannel).Info("using fabric ledger")
	} else {
		led = ledger.NewMemory()
		log.Info("using in-memory ledger")
	}

	dispatcher := dispatch.New(actions, led, nil)
	pipe := pipeline.New(cls, policy.NewDBStore(db), dispatcher)

	engine := enforcement.NewEngine(enforcement.Config{
		PollInterval:    cfg.PollInterval,
		PollBackoff:     cfg.PollBackoff,
		MonitorInterval: cfg.MonitorInterval,
		MonitorBackoff:  cfg.MonitorBackoff,
		ExecTimeout:     cfg.ExecTimeout,
		ClaimBatchSize:  cfg.ClaimBatchSize,
		StaleClaimAge:   cfg.StaleClaimAge,
		SweepInterval:   cfg.SweepInterval,
	}, actions, endpoints,
		enforcement.NewAnsibleRunner(cfg.AnsibleBinary, cfg.AnsiblePath),
		enforcement.PingProber{},
		notifier,
	)

	srv := server.New(cfg, routes.Deps{
		DB:        db,
		Pipeline:  pipe,
		Actions:   actions,
		Endpoints: endpoints,
		Notify:    notifier,
		Registry:  registry,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		engine.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx); err != nil {
			log.WithError(err).Error("http server error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	wg.Wait()
	log.Info("shutdown complete")
}

// logOutput returns stdout plus a rotated file when a log directory is
// configured and writable.
func logOutput(cfg config.Config) io.Writer {
	if cfg.LogDir == "" {
		return os.Stdout
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return os.Stdout
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "aegis.log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotated)
}
