// Package main is the entry point for the csecbridge API server: it accepts
// access requests, enqueues them for the workers, and serves status reads.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"csecbridge/internal/api"
	"csecbridge/internal/cache"
	"csecbridge/internal/config"
	internaldb "csecbridge/internal/db"
	"csecbridge/internal/db/repository"
	"csecbridge/internal/queue"
	"csecbridge/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
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
	auditRepo := repository.NewAuditRepo(readDB)
	referenceRepo := repository.NewReferenceRepo(readDB)
	jobQueue := queue.NewRedisQueue(redisClient)
	statusCache := cache.NewRedisStatusCache(redisClient, cfg.CacheTTL)

	producer := service.NewProducer(requestRepo, jobQueue, logger)
	reader := service.NewStatusReader(requestRepo, statusCache, logger)

	readyCheck := func(ctx context.Context) error {
		if err := readDB.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}

	handler := api.NewHandler(producer, reader, requestRepo, auditRepo, referenceRepo, readyCheck, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(handler, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
