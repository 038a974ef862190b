// Command sweep removes images older than the current day from the upload
// directory and exits. It is meant to be run by cron or a similar scheduler.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kaistullich/Image-Converter/internal/config"
	"github.com/kaistullich/Image-Converter/internal/repository"
	"github.com/kaistullich/Image-Converter/internal/service"
	"github.com/kaistullich/Image-Converter/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("CRITICAL: Failed to load config: " + err.Error() + "\n")
		return 1
	}

	log, err := logger.New(logger.Options{
		Level:     cfg.Log.Level,
		Encoding:  cfg.Log.Encoding,
		ErrorFile: cfg.Log.ErrorFile,
	})
	if err != nil {
		os.Stderr.WriteString("CRITICAL: Failed to initialize logger: " + err.Error() + "\n")
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewFSRepository(cfg.App.UploadDir, log)
	if err != nil {
		log.Error("Failed to open upload directory", zap.Error(err))
		return 1
	}

	policy, err := service.PolicyFor(cfg.App.RetentionMode)
	if err != nil {
		log.Error("Invalid retention mode", zap.Error(err))
		return 1
	}

	report, err := service.NewRetentionService(repo, policy, nil, log).Sweep(ctx, time.Now())
	if err != nil {
		log.Error("Retention sweep aborted", zap.Error(err))
		return 1
	}
	if len(report.Failed) > 0 {
		return 2
	}

	return 0
}
