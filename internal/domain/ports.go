package domain

import (
	"context"
	"time"
)

// RequestRepository is the state-store access layer for access requests.
// All mutations take the acting identity and run as single atomic
// transactions: either every write in the method lands, or none do.
// Implemented by repository.RequestRepo.
type RequestRepository interface {
	// Create inserts a new PENDING request together with its creation
	// audit entry (nil → PENDING) in one transaction.
	Create(ctx context.Context, actor Actor, req *AccessRequest) error

	// Claim conditionally transitions PENDING → IN_PROGRESS and appends
	// the matching audit entry. It reports false when no row was claimed
	// (already claimed, already terminal, or unknown id) — an expected,
	// silent no-op, and the sole defense against duplicate execution.
	Claim(ctx context.Context, actor Actor, correlationID string) (bool, error)

	// FinalizeSuccess transitions IN_PROGRESS → SUCCESS, appends the audit
	// entry carrying the provider reference, and inserts the
	// ExternalReference row.
	FinalizeSuccess(ctx context.Context, actor Actor, correlationID, providerRef string) error

	// FinalizeFailure transitions IN_PROGRESS → FAILED with an audit entry
	// carrying the failure detail. Terminal; never retried.
	FinalizeFailure(ctx context.Context, actor Actor, correlationID, detail string) error

	// FinalizeRetry reverts IN_PROGRESS → PENDING with an audit entry so
	// the request can re-enter the queue after a transient failure.
	FinalizeRetry(ctx context.Context, actor Actor, correlationID, detail string) error

	// GetStatus returns the current status read-model for a request, or a
	// NotFoundError for an unknown correlation id.
	GetStatus(ctx context.Context, correlationID string) (*StatusRecord, error)

	// Get returns the full request row.
	Get(ctx context.Context, correlationID string) (*AccessRequest, error)

	// ListStalePending returns PENDING requests that have not moved for at
	// least olderThan — candidates for a reconciliation re-enqueue.
	ListStalePending(ctx context.Context, actor Actor, olderThan time.Duration) ([]AccessRequest, error)

	// ReapStuck reverts IN_PROGRESS rows older than the grace period back
	// to PENDING, appending audit entries, and returns the reaped requests
	// so the caller can re-enqueue them. Recovers from consumer crashes
	// between claim and finalize.
	ReapStuck(ctx context.Context, actor Actor, grace time.Duration) ([]AccessRequest, error)
}

// AuditRepository reads the append-only transition history.
// Implemented by repository.AuditRepo.
type AuditRepository interface {
	ListByRequest(ctx context.Context, correlationID string) ([]AuditLogEntry, error)
}

// ReferenceRepository reads external provider references.
// Implemented by repository.ReferenceRepo.
type ReferenceRepository interface {
	ListByRequest(ctx context.Context, correlationID string) ([]ExternalReference, error)
}

// JobQueue is the per-platform work-dispatch signal. It carries no
// acknowledgment protocol: durability of "was this job handled" lives
// entirely in the state store. Implemented by queue.RedisQueue.
type JobQueue interface {
	// Enqueue pushes a job for normal (approximately FIFO) delivery.
	Enqueue(ctx context.Context, platform string, msg *JobMessage) error

	// RequeuePriority pushes a job to the delivery end of the queue so it
	// is redelivered before normally-queued work.
	RequeuePriority(ctx context.Context, platform string, msg *JobMessage) error

	// DequeueBlocking pops the next job payload, blocking up to timeout.
	// It returns (nil, nil) on timeout so callers can run liveness checks
	// between waits.
	DequeueBlocking(ctx context.Context, platform string, timeout time.Duration) ([]byte, error)

	// EnqueueDead parks a raw payload on the platform's error queue for
	// operator inspection (malformed or unprocessable jobs).
	EnqueueDead(ctx context.Context, platform string, payload []byte) error
}

// StatusCache is the ephemeral cache-aside store for status lookups.
// A (nil, nil) Get is a miss. Writers treat Set errors as best-effort —
// a cache failure must never fail the read path.
// Implemented by cache.RedisStatusCache.
type StatusCache interface {
	Get(ctx context.Context, correlationID string) (*StatusRecord, error)
	Set(ctx context.Context, rec *StatusRecord) error
}

// Executor performs exactly one target-platform action for a claimed job.
// Failures are returned as *ExecutionError carrying the transient/permanent
// classification; the engine is agnostic to how the action is performed.
// Implemented by awsiam.Executor.
type Executor interface {
	Execute(ctx context.Context, job *JobMessage) (*ExecutionResult, error)
}
