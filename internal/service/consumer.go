package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"csecbridge/internal/domain"
)

// ConsumerConfig tunes one consumer loop.
type ConsumerConfig struct {
	// Name identifies the consumer in audit entries and logs.
	Name string
	// Platform is the queue and row scope this consumer serves.
	Platform string
	// DequeueTimeout bounds each blocking wait so the loop can observe
	// context cancellation.
	DequeueTimeout time.Duration
	// MaxTransientRetries bounds redeliveries after transient failures.
	// Once exhausted the request finalizes to FAILED.
	MaxTransientRetries int
	// RetryBaseBackoff is the pre-requeue delay for the first retry; each
	// subsequent attempt doubles it.
	RetryBaseBackoff time.Duration
}

// Consumer pulls job messages for one platform and drives each through
// claim, execute, and finalize. It owns no durable state: everything it
// decides lands in the state store, so a crash mid-job is recovered by the
// reaper rather than by the queue.
type Consumer struct {
	requests domain.RequestRepository
	queue    domain.JobQueue
	executor domain.Executor
	cfg      ConsumerConfig
	logger   *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewConsumer(requests domain.RequestRepository, queue domain.JobQueue, executor domain.Executor,
	cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	return &Consumer{
		requests: requests,
		queue:    queue,
		executor: executor,
		cfg:      cfg,
		logger:   logger.With("component", "consumer", "consumer", cfg.Name, "platform", cfg.Platform),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run processes jobs until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started")
	for {
		if err := ctx.Err(); err != nil {
			c.logger.InfoContext(ctx, "consumer stopping")
			return err
		}

		payload, err := c.queue.DequeueBlocking(ctx, c.cfg.Platform, c.cfg.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.ErrorContext(ctx, "dequeue failed", "error", err)
			_ = c.sleep(ctx, time.Second)
			continue
		}
		if payload == nil {
			continue
		}

		if err := c.ProcessOne(ctx, payload); err != nil {
			c.logger.ErrorContext(ctx, "job processing failed", "error", err)
		}
	}
}

// ProcessOne handles a single queue payload end to end. Outcomes that the
// state store or queue already account for (malformed payloads, lost
// claims, finalized transitions) return nil; only failures that leave the
// job in the reaper's or reconciler's hands return an error.
func (c *Consumer) ProcessOne(ctx context.Context, payload []byte) error {
	msg, err := domain.DecodeJobMessage(payload)
	if err != nil {
		c.logger.WarnContext(ctx, "malformed job payload, dead-lettering", "error", err)
		if dlqErr := c.queue.EnqueueDead(ctx, c.cfg.Platform, payload); dlqErr != nil {
			return fmt.Errorf("dead-letter malformed payload: %w", dlqErr)
		}
		return nil
	}

	actor := domain.Actor{Name: c.cfg.Name, Platform: c.cfg.Platform}
	logger := c.logger.With("correlation_id", msg.CorrelationID, "attempt", msg.Attempt)

	claimed, err := c.requests.Claim(ctx, actor, msg.CorrelationID)
	if err != nil {
		// State store unavailable: put the job back at the tail and let a
		// later delivery retry the claim.
		logger.ErrorContext(ctx, "claim failed, requeueing", "error", err)
		if reqErr := c.queue.Enqueue(ctx, c.cfg.Platform, msg); reqErr != nil {
			logger.ErrorContext(ctx, "requeue after failed claim also failed, relying on reconciliation",
				"error", reqErr)
		}
		return err
	}
	if !claimed {
		// Duplicate delivery or a request someone else already owns.
		logger.DebugContext(ctx, "claim lost, dropping delivery")
		return nil
	}

	result, execErr := c.executor.Execute(ctx, msg)
	if execErr == nil {
		if err := c.requests.FinalizeSuccess(ctx, actor, msg.CorrelationID, result.ProviderReference); err != nil {
			// Row stays IN_PROGRESS; the reaper will revert it.
			return fmt.Errorf("finalize success: %w", err)
		}
		logger.InfoContext(ctx, "request executed", "provider_reference", result.ProviderReference)
		return nil
	}

	var classified *domain.ExecutionError
	if !errors.As(execErr, &classified) {
		// Unclassified failures are not retried blindly.
		classified = domain.ErrExecutionPermanent("", "%v", execErr)
	}

	if !classified.Transient() {
		if err := c.requests.FinalizeFailure(ctx, actor, msg.CorrelationID, classified.Error()); err != nil {
			return fmt.Errorf("finalize failure: %w", err)
		}
		logger.WarnContext(ctx, "request failed permanently", "code", classified.Code, "detail", classified.Detail)
		return nil
	}

	if msg.Attempt >= c.cfg.MaxTransientRetries {
		detail := fmt.Sprintf("retry budget exhausted after %d attempts: %s", msg.Attempt+1, classified.Error())
		if err := c.requests.FinalizeFailure(ctx, actor, msg.CorrelationID, detail); err != nil {
			return fmt.Errorf("finalize exhausted retries: %w", err)
		}
		logger.WarnContext(ctx, "retry budget exhausted", "code", classified.Code)
		return nil
	}

	if err := c.requests.FinalizeRetry(ctx, actor, msg.CorrelationID, classified.Error()); err != nil {
		return fmt.Errorf("finalize retry: %w", err)
	}

	// Delay before requeueing so a throttling platform gets room to
	// breathe: base doubles per attempt.
	if err := c.sleep(ctx, c.cfg.RetryBaseBackoff<<uint(msg.Attempt)); err != nil {
		// Shutdown mid-backoff: the row is already PENDING, reconciliation
		// re-enqueues it.
		return err
	}

	retry := *msg
	retry.Attempt = msg.Attempt + 1
	if err := c.queue.RequeuePriority(ctx, c.cfg.Platform, &retry); err != nil {
		logger.ErrorContext(ctx, "priority requeue failed, relying on reconciliation", "error", err)
		return err
	}
	logger.InfoContext(ctx, "transient failure, requeued", "code", classified.Code, "next_attempt", retry.Attempt)
	return nil
}
