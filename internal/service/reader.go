package service

import (
	"context"
	"log/slog"

	"csecbridge/internal/domain"
)

// StatusReader serves status lookups cache-aside: hit the cache first, fall
// back to the state store, and backfill the cache on a miss. Cache failures
// in either direction degrade to state-store reads, never to errors.
type StatusReader struct {
	requests domain.RequestRepository
	cache    domain.StatusCache
	logger   *slog.Logger
}

func NewStatusReader(requests domain.RequestRepository, cache domain.StatusCache, logger *slog.Logger) *StatusReader {
	return &StatusReader{
		requests: requests,
		cache:    cache,
		logger:   logger.With("component", "status_reader"),
	}
}

// GetStatus returns the current status record for a request.
func (r *StatusReader) GetStatus(ctx context.Context, correlationID string) (*domain.StatusRecord, error) {
	if r.cache != nil {
		rec, err := r.cache.Get(ctx, correlationID)
		if err != nil {
			r.logger.WarnContext(ctx, "status cache read failed, falling back to state store",
				"correlation_id", correlationID, "error", err)
		} else if rec != nil {
			return rec, nil
		}
	}

	rec, err := r.requests.GetStatus(ctx, correlationID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, rec); err != nil {
			r.logger.WarnContext(ctx, "status cache backfill failed",
				"correlation_id", correlationID, "error", err)
		}
	}
	return rec, nil
}
