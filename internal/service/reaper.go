package service

import (
	"context"
	"log/slog"
	"time"

	"csecbridge/internal/domain"
)

// Reaper recovers work the queue or a dead consumer lost. It runs on a
// schedule alongside the consumers.
type Reaper struct {
	requests domain.RequestRepository
	queue    domain.JobQueue
	logger   *slog.Logger
}

func NewReaper(requests domain.RequestRepository, queue domain.JobQueue, logger *slog.Logger) *Reaper {
	return &Reaper{
		requests: requests,
		queue:    queue,
		logger:   logger.With("component", "reaper"),
	}
}

// ReapInProgress reverts IN_PROGRESS rows stuck past the grace period back
// to PENDING and re-enqueues them. It returns how many rows were reaped.
func (r *Reaper) ReapInProgress(ctx context.Context, platform string, grace time.Duration) (int, error) {
	actor := domain.Actor{Name: "reaper", Platform: platform}
	reaped, err := r.requests.ReapStuck(ctx, actor, grace)
	if err != nil {
		return 0, err
	}
	for i := range reaped {
		req := &reaped[i]
		if err := r.queue.Enqueue(ctx, req.TargetPlatform, domain.NewJobMessage(req)); err != nil {
			// Row is PENDING again either way; the stale-pending sweep
			// picks it up if this enqueue is lost too.
			r.logger.ErrorContext(ctx, "re-enqueue of reaped request failed",
				"correlation_id", req.CorrelationID, "error", err)
			continue
		}
		r.logger.InfoContext(ctx, "reaped stuck request",
			"correlation_id", req.CorrelationID, "platform", req.TargetPlatform)
	}
	return len(reaped), nil
}

// RequeueStalePending re-enqueues PENDING rows older than olderThan —
// requests whose queue signal was lost (enqueue failure after commit, or a
// dropped redelivery). It returns how many rows were re-enqueued.
func (r *Reaper) RequeueStalePending(ctx context.Context, platform string, olderThan time.Duration) (int, error) {
	actor := domain.Actor{Name: "reconciler", Platform: platform}
	stale, err := r.requests.ListStalePending(ctx, actor, olderThan)
	if err != nil {
		return 0, err
	}
	requeued := 0
	for i := range stale {
		req := &stale[i]
		if err := r.queue.Enqueue(ctx, req.TargetPlatform, domain.NewJobMessage(req)); err != nil {
			r.logger.ErrorContext(ctx, "re-enqueue of stale pending request failed",
				"correlation_id", req.CorrelationID, "error", err)
			continue
		}
		requeued++
		r.logger.InfoContext(ctx, "re-enqueued stale pending request",
			"correlation_id", req.CorrelationID, "platform", req.TargetPlatform)
	}
	return requeued, nil
}
