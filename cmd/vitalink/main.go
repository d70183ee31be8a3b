package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmsas95/vitalink/internal/api"
	"github.com/gmsas95/vitalink/internal/assistant"
	"github.com/gmsas95/vitalink/internal/config"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/reminder"
	"github.com/gmsas95/vitalink/internal/reports"
	"github.com/gmsas95/vitalink/internal/store"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "Path to config file")
	dataDir     = flag.String("data", "", "Path to data directory")
	showVersion = flag.Bool("version", false, "Print version and exit")
	version     = "dev"
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("VitaLink version %s\n", version)
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting VitaLink", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.New(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	healthSvc := health.NewService(st.Patients(), logger)
	reminderSvc := reminder.NewService(st.Reminders(), healthSvc, logger)

	assistantClient := assistant.NewClient(cfg.Assistant)
	extractor := assistant.NewExtractor(assistantClient, logger)
	reportsClient := reports.NewClient(cfg.Reports)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := reminder.NewSweeper(st.Reminders(), logger).
		WithInterval(time.Duration(cfg.Scheduler.SweepIntervalSeconds) * time.Second)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("Failed to start reminder sweeper", zap.Error(err))
	}

	rollover := reminder.NewRollover(st.Reminders(), healthSvc, logger)
	if err := rollover.Start(cfg.Scheduler.RolloverCron); err != nil {
		logger.Fatal("Failed to schedule rollover job", zap.Error(err))
	}

	server := api.New(cfg, logger, healthSvc, reminderSvc, extractor, reportsClient)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped", zap.Error(err))
		}
	}

	if err := server.Shutdown(); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	rollover.Stop()
	if err := sweeper.Stop(); err != nil {
		logger.Error("Sweeper shutdown failed", zap.Error(err))
	}
}
