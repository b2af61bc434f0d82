package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csecbridge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validRequest() *domain.AccessRequest {
	return &domain.AccessRequest{
		ClientRequestID: "client-req-1",
		AccountID:       "123456789012",
		TargetPlatform:  "aws",
		PrincipalType:   domain.PrincipalTypeUser,
		PrincipalName:   "alice",
		Action:          domain.ActionGrant,
		PermissionRef:   "ReadOnlyAccess",
	}
}

func TestProducer_Submit(t *testing.T) {
	var enqueued *domain.JobMessage
	repo := &mockRequestRepo{
		createFn: func(_ context.Context, actor domain.Actor, req *domain.AccessRequest) error {
			assert.Equal(t, "api-service", actor.Name)
			assert.Equal(t, "aws", actor.Platform)
			req.CorrelationID = "corr-1"
			req.Status = domain.StatusPending
			return nil
		},
	}
	queue := &mockQueue{
		enqueueFn: func(_ context.Context, platform string, msg *domain.JobMessage) error {
			assert.Equal(t, "aws", platform)
			enqueued = msg
			return nil
		},
	}

	p := NewProducer(repo, queue, testLogger())
	got, err := p.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, domain.StatusPending, got.Status)
	require.NotNil(t, enqueued)
	assert.Equal(t, "corr-1", enqueued.CorrelationID)
	assert.Equal(t, 0, enqueued.Attempt)
}

func TestProducer_Submit_Invalid(t *testing.T) {
	p := NewProducer(&mockRequestRepo{}, &mockQueue{}, testLogger())

	req := validRequest()
	req.PrincipalName = ""
	_, err := p.Submit(context.Background(), req)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProducer_Submit_CreateFails(t *testing.T) {
	repo := &mockRequestRepo{
		createFn: func(context.Context, domain.Actor, *domain.AccessRequest) error {
			return domain.ErrPersistence("state store down")
		},
	}

	p := NewProducer(repo, &mockQueue{}, testLogger())
	_, err := p.Submit(context.Background(), validRequest())

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
}

// A lost enqueue after the commit must not fail the submission: the row is
// PENDING and the reconciliation sweep re-enqueues it.
func TestProducer_Submit_EnqueueFailureIsNotFatal(t *testing.T) {
	repo := &mockRequestRepo{
		createFn: func(_ context.Context, _ domain.Actor, req *domain.AccessRequest) error {
			req.CorrelationID = "corr-1"
			req.Status = domain.StatusPending
			return nil
		},
	}
	queue := &mockQueue{
		enqueueFn: func(context.Context, string, *domain.JobMessage) error {
			return domain.ErrPersistence("queue down")
		},
	}

	p := NewProducer(repo, queue, testLogger())
	got, err := p.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "corr-1", got.CorrelationID)
}
