package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"gestion/internal/amqp"
	"gestion/internal/cache"
	"gestion/internal/cli"
	apphttp "gestion/internal/http"
	"gestion/internal/log"
	"gestion/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	// Broker is optional: without it rows stay pending until the worker
	// polls them.
	var (
		pub        services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync events", log.FieldError, err)
		} else {
			amqpClient, pub = c, c
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := cli.BuildServices(cfg, repo, pub, logger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	created, err := svc.Auth.EnsureAdmin(bootCtx, cfg.AdminUsername, cfg.AdminPassword)
	bootCancel()
	switch {
	case err != nil:
		logger.Error("Failed to create initial admin", log.FieldError, err)
		os.Exit(1)
	case created:
		logger.Info("Initial admin account created", log.FieldUsuario, cfg.AdminUsername)
	}

	loc := repo.Location()
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		AuthEnabled:        cfg.AuthEnabled,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           loc,
	}, svc, repo, logger)

	var sweeper *services.SyncSweeper
	if pub != nil {
		sweeper = services.NewSyncSweeper(repo, pub, services.SweeperConfig{
			Interval:  cfg.SyncInterval,
			BatchSize: cfg.SyncBatchSize,
			MinAge:    30 * time.Second,
		}, logger)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if sweeper != nil {
			if err := sweeper.Stop(ctx); err != nil {
				logger.Error("Sweeper shutdown error", log.FieldError, err)
			}
		}
	})

	janitor := cache.NewJanitor(svc.Caches()...)
	go janitor.Run(ctx, time.Minute)

	if sweeper != nil {
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("Failed to start sync sweeper", log.FieldError, err)
		}
	}

	logger.Info("Starting gestion server",
		"port", cfg.Port, "auth_enabled", cfg.AuthEnabled, "timezone", loc.String(), "amqp_enabled", pub != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	<-janitor.Done()
	logger.Info("Server stopped gracefully")
}
