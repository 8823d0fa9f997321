package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/bootstrap"
	"github.com/noah-isme/sensei-assign-api/pkg/config"
	"github.com/noah-isme/sensei-assign-api/pkg/logger"
)

// backup-scan runs a single coverage scan and prints its summary, for use from cron.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to build services", zap.Error(err))
	}
	defer services.Close()

	// Deliver inline so the process does not exit with notifications still queued.
	services.Notification.AttachQueue(nil)

	summary, err := services.Coordinator.RunBackupScan(ctx)
	if err != nil {
		logr.Error("backup scan failed", zap.Error(err))
		services.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logr.Error("failed to write summary", zap.Error(err))
	}
}
