package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"papermill/internal/api"
	"papermill/internal/config"
	"papermill/internal/daemon"
	"papermill/internal/deps"
	"papermill/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := deps.Verify(cfg); err != nil {
		logger.Error("dependency check failed", logging.Error(err))
		os.Exit(1)
	}

	svc, cache, events, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Error("build conversion service", logging.Error(err))
		os.Exit(1)
	}

	server := api.NewServer(cfg, svc, logger)
	d, err := daemon.New(cfg, svc, server, cache, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	if err := events.NotifyDaemonStarted(ctx, cfg.Paths.APIBind); err != nil {
		logger.Warn("startup notification failed", logging.Error(err))
	}

	<-ctx.Done()
	logger.Info("papermilld shutting down")
}
