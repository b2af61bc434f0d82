// Package service implements the request-lifecycle engine: the producer
// that accepts requests, the consumer loop that executes them, the
// cache-aside status reader, and the reaper that recovers stuck work.
package service

import (
	"context"
	"log/slog"

	"csecbridge/internal/domain"
)

// Producer accepts validated access requests, persists them as PENDING,
// and signals the platform's consumers through the queue.
type Producer struct {
	requests domain.RequestRepository
	queue    domain.JobQueue
	logger   *slog.Logger
}

func NewProducer(requests domain.RequestRepository, queue domain.JobQueue, logger *slog.Logger) *Producer {
	return &Producer{
		requests: requests,
		queue:    queue,
		logger:   logger.With("component", "producer"),
	}
}

// Submit validates the request, assigns its correlation id, persists it as
// PENDING with the creation audit entry, and enqueues the job message.
//
// Persist-then-enqueue is deliberate: if the enqueue fails after the commit
// the request is returned anyway, as an orphaned PENDING row that the
// reconciliation sweep re-enqueues later. The reverse order could execute
// work the state store never heard of.
func (p *Producer) Submit(ctx context.Context, req *domain.AccessRequest) (*domain.AccessRequest, error) {
	if req == nil {
		return nil, domain.ErrValidation("access request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	actor := domain.Actor{Name: "api-service", Platform: req.TargetPlatform}
	if err := p.requests.Create(ctx, actor, req); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "request accepted",
		"correlation_id", req.CorrelationID,
		"client_request_id", req.ClientRequestID,
		"platform", req.TargetPlatform,
		"action", req.Action)

	if err := p.queue.Enqueue(ctx, req.TargetPlatform, domain.NewJobMessage(req)); err != nil {
		p.logger.ErrorContext(ctx, "enqueue failed after commit, request left pending for reconciliation",
			"correlation_id", req.CorrelationID,
			"error", err)
	}

	return req, nil
}
