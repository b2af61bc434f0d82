// Package main is the entry point for the csecbridge worker: it runs the
// consumer pools that execute access requests and the reaper that recovers
// stuck and orphaned work.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"csecbridge/internal/config"
	internaldb "csecbridge/internal/db"
	"csecbridge/internal/db/repository"
	"csecbridge/internal/executor/awsiam"
	"csecbridge/internal/queue"
	"csecbridge/internal/service"
)

func main() {
	if err := run(); err != nil && err != context.Canceled {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.StateDBPath, 0)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close() //nolint:errcheck

	requestRepo := repository.NewRequestRepo(writeDB, readDB)
	jobQueue := queue.NewRedisQueue(redisClient)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return err
	}
	executor := awsiam.New(sts.NewFromConfig(awsCfg), awsiam.Config{
		Region:          cfg.AWS.Region,
		HandlerRoleName: cfg.AWS.HandlerRoleName,
		SessionName:     cfg.AWS.SessionName,
	})

	reaper := service.NewReaper(requestRepo, jobQueue, logger)
	scheduler := cron.New()
	for _, platform := range cfg.Platforms {
		platform := platform
		_, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.ReapInterval), func() {
			ctx := context.Background()
			if _, err := reaper.ReapInProgress(ctx, platform, cfg.ReapGrace); err != nil {
				logger.Warn("reap pass failed", "platform", platform, "error", err)
			}
			if _, err := reaper.RequeueStalePending(ctx, platform, cfg.StaleAfter); err != nil {
				logger.Warn("reconciliation pass failed", "platform", platform, "error", err)
			}
		})
		if err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, platform := range cfg.Platforms {
		for i := 0; i < cfg.ConsumerCount; i++ {
			consumer := service.NewConsumer(requestRepo, jobQueue, executor, service.ConsumerConfig{
				Name:                fmt.Sprintf("worker-%s-%d", platform, i),
				Platform:            platform,
				DequeueTimeout:      cfg.DequeueTimeout,
				MaxTransientRetries: cfg.MaxTransientRetries,
				RetryBaseBackoff:    cfg.RetryBaseBackoff,
			}, logger)
			g.Go(func() error {
				return consumer.Run(gctx)
			})
		}
	}

	logger.Info("worker started",
		"platforms", cfg.Platforms,
		"consumers_per_platform", cfg.ConsumerCount)

	return g.Wait()
}
