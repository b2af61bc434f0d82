package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"csecbridge/internal/config"
	internaldb "csecbridge/internal/db"
	"csecbridge/internal/db/repository"
	"csecbridge/internal/queue"
	"csecbridge/internal/service"
)

// openReaper wires a Reaper against the state store and queue from the
// environment. Used by the operator commands, which bypass the API.
func openReaper() (*service.Reaper, func(), error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.StateDBPath, 0)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	cleanup := func() {
		_ = redisClient.Close()
		_ = readDB.Close()
		_ = writeDB.Close()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reaper := service.NewReaper(
		repository.NewRequestRepo(writeDB, readDB),
		queue.NewRedisQueue(redisClient),
		logger,
	)
	return reaper, cleanup, nil
}

func newRequeueStaleCmd() *cobra.Command {
	var (
		platform  string
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "requeue-stale",
		Short: "Re-enqueue PENDING requests whose queue signal was lost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reaper, cleanup, err := openReaper()
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := reaper.RequeueStalePending(context.Background(), platform, olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "re-enqueued %d stale pending request(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "aws", "target platform")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*time.Minute, "minimum PENDING age")
	return cmd
}

func newReapCmd() *cobra.Command {
	var (
		platform string
		grace    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Revert stuck IN_PROGRESS requests to PENDING and re-enqueue them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reaper, cleanup, err := openReaper()
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := reaper.ReapInProgress(context.Background(), platform, grace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reaped %d stuck request(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "aws", "target platform")
	cmd.Flags().DurationVar(&grace, "grace", 15*time.Minute, "minimum IN_PROGRESS age")
	return cmd
}
