package main

import (
	"context"
	"errors"
	"os"
	"time"

	"gestion/internal/amqp"
	"gestion/internal/backend"
	"gestion/internal/cli"
	"gestion/internal/log"
	"gestion/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting gestion-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	svc := cli.BuildServices(cfg, repo, nil, logger)

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).CreateMirror(bootCtx, mirrorCfg)
	bootCancel()
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err, "backend", mirrorCfg.Type.String())
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	scheduler, err := worker.NewScheduler(worker.SchedulerConfig{
		ReportCron: cfg.ReportCron,
		StockCron:  cfg.StockCron,
		ReportsDir: cfg.ReportsDir,
		Location:   repo.Location(),
	}, svc.Reports, svc.Catalog, logger)
	if err != nil {
		logger.Error("Failed to configure scheduler", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop timed out", log.FieldError, err)
		}
	})
	scheduler.Start()

	if res.Mirror == nil {
		logger.Info("Spreadsheet mirror disabled, running scheduled jobs only")
		cli.WaitForShutdown(ctx, done)
		return
	}

	syncWorker := worker.NewSyncWorker(repo, res.Mirror, cfg.SyncBatchSize, logger)
	logger.Info("Performing startup sync check")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, polling pending rows instead", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			go func() {
				if err := amqpClient.Consume(ctx, syncWorker.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", log.FieldError, err)
				}
			}()
		}
	}

	// Periodic pass for rows whose messages were lost or whose mirror
	// write failed.
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := syncWorker.ProcessPending(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
