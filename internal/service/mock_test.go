package service

import (
	"context"
	"time"

	"csecbridge/internal/domain"
)

// === Request Repository Mock ===

type mockRequestRepo struct {
	createFn           func(ctx context.Context, actor domain.Actor, req *domain.AccessRequest) error
	claimFn            func(ctx context.Context, actor domain.Actor, correlationID string) (bool, error)
	finalizeSuccessFn  func(ctx context.Context, actor domain.Actor, correlationID, providerRef string) error
	finalizeFailureFn  func(ctx context.Context, actor domain.Actor, correlationID, detail string) error
	finalizeRetryFn    func(ctx context.Context, actor domain.Actor, correlationID, detail string) error
	getStatusFn        func(ctx context.Context, correlationID string) (*domain.StatusRecord, error)
	getFn              func(ctx context.Context, correlationID string) (*domain.AccessRequest, error)
	listStalePendingFn func(ctx context.Context, actor domain.Actor, olderThan time.Duration) ([]domain.AccessRequest, error)
	reapStuckFn        func(ctx context.Context, actor domain.Actor, grace time.Duration) ([]domain.AccessRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, actor domain.Actor, req *domain.AccessRequest) error {
	if m.createFn != nil {
		return m.createFn(ctx, actor, req)
	}
	panic("unexpected call to mockRequestRepo.Create")
}

func (m *mockRequestRepo) Claim(ctx context.Context, actor domain.Actor, correlationID string) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, actor, correlationID)
	}
	panic("unexpected call to mockRequestRepo.Claim")
}

func (m *mockRequestRepo) FinalizeSuccess(ctx context.Context, actor domain.Actor, correlationID, providerRef string) error {
	if m.finalizeSuccessFn != nil {
		return m.finalizeSuccessFn(ctx, actor, correlationID, providerRef)
	}
	panic("unexpected call to mockRequestRepo.FinalizeSuccess")
}

func (m *mockRequestRepo) FinalizeFailure(ctx context.Context, actor domain.Actor, correlationID, detail string) error {
	if m.finalizeFailureFn != nil {
		return m.finalizeFailureFn(ctx, actor, correlationID, detail)
	}
	panic("unexpected call to mockRequestRepo.FinalizeFailure")
}

func (m *mockRequestRepo) FinalizeRetry(ctx context.Context, actor domain.Actor, correlationID, detail string) error {
	if m.finalizeRetryFn != nil {
		return m.finalizeRetryFn(ctx, actor, correlationID, detail)
	}
	panic("unexpected call to mockRequestRepo.FinalizeRetry")
}

func (m *mockRequestRepo) GetStatus(ctx context.Context, correlationID string) (*domain.StatusRecord, error) {
	if m.getStatusFn != nil {
		return m.getStatusFn(ctx, correlationID)
	}
	panic("unexpected call to mockRequestRepo.GetStatus")
}

func (m *mockRequestRepo) Get(ctx context.Context, correlationID string) (*domain.AccessRequest, error) {
	if m.getFn != nil {
		return m.getFn(ctx, correlationID)
	}
	panic("unexpected call to mockRequestRepo.Get")
}

func (m *mockRequestRepo) ListStalePending(ctx context.Context, actor domain.Actor, olderThan time.Duration) ([]domain.AccessRequest, error) {
	if m.listStalePendingFn != nil {
		return m.listStalePendingFn(ctx, actor, olderThan)
	}
	panic("unexpected call to mockRequestRepo.ListStalePending")
}

func (m *mockRequestRepo) ReapStuck(ctx context.Context, actor domain.Actor, grace time.Duration) ([]domain.AccessRequest, error) {
	if m.reapStuckFn != nil {
		return m.reapStuckFn(ctx, actor, grace)
	}
	panic("unexpected call to mockRequestRepo.ReapStuck")
}

// === Job Queue Mock ===

type mockQueue struct {
	enqueueFn         func(ctx context.Context, platform string, msg *domain.JobMessage) error
	requeuePriorityFn func(ctx context.Context, platform string, msg *domain.JobMessage) error
	dequeueBlockingFn func(ctx context.Context, platform string, timeout time.Duration) ([]byte, error)
	enqueueDeadFn     func(ctx context.Context, platform string, payload []byte) error
}

func (m *mockQueue) Enqueue(ctx context.Context, platform string, msg *domain.JobMessage) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, platform, msg)
	}
	panic("unexpected call to mockQueue.Enqueue")
}

func (m *mockQueue) RequeuePriority(ctx context.Context, platform string, msg *domain.JobMessage) error {
	if m.requeuePriorityFn != nil {
		return m.requeuePriorityFn(ctx, platform, msg)
	}
	panic("unexpected call to mockQueue.RequeuePriority")
}

func (m *mockQueue) DequeueBlocking(ctx context.Context, platform string, timeout time.Duration) ([]byte, error) {
	if m.dequeueBlockingFn != nil {
		return m.dequeueBlockingFn(ctx, platform, timeout)
	}
	panic("unexpected call to mockQueue.DequeueBlocking")
}

func (m *mockQueue) EnqueueDead(ctx context.Context, platform string, payload []byte) error {
	if m.enqueueDeadFn != nil {
		return m.enqueueDeadFn(ctx, platform, payload)
	}
	panic("unexpected call to mockQueue.EnqueueDead")
}

// === Status Cache Mock ===

type mockCache struct {
	getFn func(ctx context.Context, correlationID string) (*domain.StatusRecord, error)
	setFn func(ctx context.Context, rec *domain.StatusRecord) error
}

func (m *mockCache) Get(ctx context.Context, correlationID string) (*domain.StatusRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, correlationID)
	}
	panic("unexpected call to mockCache.Get")
}

func (m *mockCache) Set(ctx context.Context, rec *domain.StatusRecord) error {
	if m.setFn != nil {
		return m.setFn(ctx, rec)
	}
	panic("unexpected call to mockCache.Set")
}

// === Executor Mock ===

type mockExecutor struct {
	executeFn func(ctx context.Context, job *domain.JobMessage) (*domain.ExecutionResult, error)
}

func (m *mockExecutor) Execute(ctx context.Context, job *domain.JobMessage) (*domain.ExecutionResult, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, job)
	}
	panic("unexpected call to mockExecutor.Execute")
}
