package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csecbridge/internal/domain"
)

func TestStatusReader_CacheHit(t *testing.T) {
	cached := &domain.StatusRecord{CorrelationID: "corr-1", Status: domain.StatusSuccess, UpdatedAt: time.Now()}
	cache := &mockCache{
		getFn: func(_ context.Context, id string) (*domain.StatusRecord, error) {
			assert.Equal(t, "corr-1", id)
			return cached, nil
		},
	}

	// repo is never consulted on a hit: any call panics the test.
	r := NewStatusReader(&mockRequestRepo{}, cache, testLogger())
	got, err := r.GetStatus(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestStatusReader_CacheMissBackfills(t *testing.T) {
	stored := &domain.StatusRecord{CorrelationID: "corr-1", Status: domain.StatusPending, UpdatedAt: time.Now()}
	var backfilled *domain.StatusRecord
	cache := &mockCache{
		getFn: func(context.Context, string) (*domain.StatusRecord, error) { return nil, nil },
		setFn: func(_ context.Context, rec *domain.StatusRecord) error {
			backfilled = rec
			return nil
		},
	}
	repo := &mockRequestRepo{
		getStatusFn: func(context.Context, string) (*domain.StatusRecord, error) { return stored, nil },
	}

	r := NewStatusReader(repo, cache, testLogger())
	got, err := r.GetStatus(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.Equal(t, stored, backfilled)
}

// Cache failures degrade to state-store reads, never to errors.
func TestStatusReader_CacheErrorsDegrade(t *testing.T) {
	stored := &domain.StatusRecord{CorrelationID: "corr-1", Status: domain.StatusInProgress, UpdatedAt: time.Now()}
	cache := &mockCache{
		getFn: func(context.Context, string) (*domain.StatusRecord, error) {
			return nil, domain.ErrPersistence("cache down")
		},
		setFn: func(context.Context, *domain.StatusRecord) error {
			return domain.ErrPersistence("cache down")
		},
	}
	repo := &mockRequestRepo{
		getStatusFn: func(context.Context, string) (*domain.StatusRecord, error) { return stored, nil },
	}

	r := NewStatusReader(repo, cache, testLogger())
	got, err := r.GetStatus(context.Background(), "corr-1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestStatusReader_NotFound(t *testing.T) {
	cache := &mockCache{
		getFn: func(context.Context, string) (*domain.StatusRecord, error) { return nil, nil },
	}
	repo := &mockRequestRepo{
		getStatusFn: func(context.Context, string) (*domain.StatusRecord, error) {
			return nil, domain.ErrNotFound("access request %q not found", "nope")
		},
	}

	r := NewStatusReader(repo, cache, testLogger())
	_, err := r.GetStatus(context.Background(), "nope")

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}
