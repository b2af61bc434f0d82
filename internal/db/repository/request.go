package repository

import (
	"context"
	"database/sql"
	"time"

	"csecbridge/internal/domain"
)

var _ domain.RequestRepository = (*RequestRepo)(nil)

const requestColumns = `correlation_id, client_request_id, account_id, target_platform,
	       principal_type, principal_name, action, permission_ref, permission_type,
	       status, created_at, updated_at`

// RequestRepo stores access-request lifecycle state in SQLite. Mutations go
// through the serialized write pool and run as single transactions; reads
// use the concurrent read pool.
type RequestRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewRequestRepo creates a new RequestRepo on a write/read pool pair.
func NewRequestRepo(writeDB, readDB *sql.DB) *RequestRepo {
	return &RequestRepo{writeDB: writeDB, readDB: readDB}
}

// Create inserts a new PENDING request plus its creation audit entry in one
// transaction. A duplicate correlation id maps to a ConflictError; any
// other transaction failure to a PersistenceError with no partial write.
func (r *RequestRepo) Create(ctx context.Context, actor domain.Actor, req *domain.AccessRequest) error {
	if req == nil {
		return domain.ErrValidation("access request is required")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if !actor.CanAccess(req.TargetPlatform) {
		return domain.ErrAccessDenied("actor %q may not create requests for platform %q", actor.Name, req.TargetPlatform)
	}
	if req.CorrelationID == "" {
		req.CorrelationID = domain.NewID()
	}
	if req.PermissionType == "" {
		req.PermissionType = domain.PermissionTypeManaged
	}
	req.Status = domain.StatusPending

	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO access_requests (correlation_id, client_request_id, account_id, target_platform,
		                             principal_type, principal_name, action, permission_ref, permission_type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.CorrelationID, req.ClientRequestID, req.AccountID, req.TargetPlatform,
		req.PrincipalType, req.PrincipalName, req.Action, req.PermissionRef, req.PermissionType,
		string(req.Status))
	if err != nil {
		return mapDBError(err)
	}

	if err := insertAudit(ctx, tx, req.CorrelationID, nil, domain.StatusPending, "request accepted"); err != nil {
		return mapDBError(err)
	}

	if err := tx.QueryRowContext(ctx, `
		SELECT created_at, updated_at FROM access_requests WHERE correlation_id = ?
	`, req.CorrelationID).Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapDBError(err)
	}
	return nil
}

// Claim conditionally transitions PENDING → IN_PROGRESS. The conditional
// UPDATE with a status-equality predicate is the sole defense against two
// consumers executing the same request: exactly one concurrent claimer sees
// an affected row. Zero affected rows is an expected, silent no-op.
func (r *RequestRepo) Claim(ctx context.Context, actor domain.Actor, correlationID string) (bool, error) {
	if actor.Platform == domain.PlatformWildcard {
		return false, domain.ErrValidation("claim requires a platform-scoped actor")
	}

	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return false, mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE access_requests
		SET status = ?, updated_at = datetime('now')
		WHERE correlation_id = ? AND status = ? AND target_platform = ?
	`, string(domain.StatusInProgress), correlationID, string(domain.StatusPending), actor.Platform)
	if err != nil {
		return false, mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapDBError(err)
	}
	if n == 0 {
		// Already claimed, already terminal, or unknown id — abandon.
		return false, nil
	}

	prior := domain.StatusPending
	if err := insertAudit(ctx, tx, correlationID, &prior, domain.StatusInProgress,
		"claimed by "+actor.Name); err != nil {
		return false, mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return false, mapDBError(err)
	}
	return true, nil
}

// FinalizeSuccess transitions IN_PROGRESS → SUCCESS, records the provider
// reference in the audit trail, and inserts the ExternalReference row, all
// in one transaction.
func (r *RequestRepo) FinalizeSuccess(ctx context.Context, actor domain.Actor, correlationID, providerRef string) error {
	return r.transition(ctx, actor, correlationID, domain.StatusInProgress, domain.StatusSuccess, providerRef,
		func(ctx context.Context, tx *sql.Tx, platform string) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO external_references (correlation_id, platform, reference_id)
				VALUES (?, ?, ?)
			`, correlationID, platform, providerRef)
			return err
		})
}

// FinalizeFailure transitions IN_PROGRESS → FAILED with the failure detail.
func (r *RequestRepo) FinalizeFailure(ctx context.Context, actor domain.Actor, correlationID, detail string) error {
	return r.transition(ctx, actor, correlationID, domain.StatusInProgress, domain.StatusFailed, detail, nil)
}

// FinalizeRetry reverts IN_PROGRESS → PENDING after a transient failure so
// the request can be redelivered.
func (r *RequestRepo) FinalizeRetry(ctx context.Context, actor domain.Actor, correlationID, detail string) error {
	return r.transition(ctx, actor, correlationID, domain.StatusInProgress, domain.StatusPending, detail, nil)
}

// transition performs one audited status transition as a single transaction:
// conditional update, audit append, and an optional extra write.
func (r *RequestRepo) transition(ctx context.Context, actor domain.Actor, correlationID string,
	from, to domain.Status, detail string,
	extra func(ctx context.Context, tx *sql.Tx, platform string) error) error {

	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	var platform, current string
	err = tx.QueryRowContext(ctx, `
		SELECT target_platform, status FROM access_requests WHERE correlation_id = ?
	`, correlationID).Scan(&platform, &current)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound("access request %q not found", correlationID)
		}
		return mapDBError(err)
	}
	if !actor.CanAccess(platform) {
		return domain.ErrAccessDenied("actor %q may not finalize requests for platform %q", actor.Name, platform)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE access_requests
		SET status = ?, updated_at = datetime('now')
		WHERE correlation_id = ? AND status = ?
	`, string(to), correlationID, string(from))
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		return domain.ErrConflict("access request %q is %s, not %s", correlationID, current, from)
	}

	if err := insertAudit(ctx, tx, correlationID, &from, to, detail); err != nil {
		return mapDBError(err)
	}

	if extra != nil {
		if err := extra(ctx, tx, platform); err != nil {
			return mapDBError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return mapDBError(err)
	}
	return nil
}

// GetStatus returns the status read-model for a request.
func (r *RequestRepo) GetStatus(ctx context.Context, correlationID string) (*domain.StatusRecord, error) {
	var rec domain.StatusRecord
	var status string
	err := r.readDB.QueryRowContext(ctx, `
		SELECT correlation_id, status, updated_at FROM access_requests WHERE correlation_id = ?
	`, correlationID).Scan(&rec.CorrelationID, &status, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("access request %q not found", correlationID)
		}
		return nil, mapDBError(err)
	}
	rec.Status = domain.Status(status)
	return &rec, nil
}

// Get returns the full request row.
func (r *RequestRepo) Get(ctx context.Context, correlationID string) (*domain.AccessRequest, error) {
	row := r.readDB.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests WHERE correlation_id = ?
	`, correlationID)
	req, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("access request %q not found", correlationID)
		}
		return nil, mapDBError(err)
	}
	return req, nil
}

// ListStalePending returns PENDING requests that have not moved for at
// least olderThan, oldest first — the source for a reconciliation
// re-enqueue of rows orphaned from the queue.
func (r *RequestRepo) ListStalePending(ctx context.Context, actor domain.Actor, olderThan time.Duration) ([]domain.AccessRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM access_requests
		WHERE status = ? AND updated_at <= datetime('now', ?)`
	args := []interface{}{string(domain.StatusPending), agoModifier(olderThan)}
	if actor.Platform != domain.PlatformWildcard {
		query += ` AND target_platform = ?`
		args = append(args, actor.Platform)
	}
	query += ` ORDER BY updated_at`

	rows, err := r.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, mapDBError(err)
		}
		out = append(out, *req)
	}
	return out, mapDBError(rows.Err())
}

// ReapStuck reverts IN_PROGRESS rows older than the grace period back to
// PENDING with audit entries and returns them for re-enqueue. This is the
// recovery path for consumers that died between claim and finalize.
func (r *RequestRepo) ReapStuck(ctx context.Context, actor domain.Actor, grace time.Duration) ([]domain.AccessRequest, error) {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		SELECT ` + requestColumns + `
		FROM access_requests
		WHERE status = ? AND updated_at <= datetime('now', ?)`
	args := []interface{}{string(domain.StatusInProgress), agoModifier(grace)}
	if actor.Platform != domain.PlatformWildcard {
		query += ` AND target_platform = ?`
		args = append(args, actor.Platform)
	}
	query += ` ORDER BY updated_at`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	var stuck []domain.AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, mapDBError(err)
		}
		stuck = append(stuck, *req)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapDBError(err)
	}
	rows.Close()

	prior := domain.StatusInProgress
	for i := range stuck {
		req := &stuck[i]
		if _, err := tx.ExecContext(ctx, `
			UPDATE access_requests SET status = ?, updated_at = datetime('now') WHERE correlation_id = ?
		`, string(domain.StatusPending), req.CorrelationID); err != nil {
			return nil, mapDBError(err)
		}
		if err := insertAudit(ctx, tx, req.CorrelationID, &prior, domain.StatusPending,
			"reaped by "+actor.Name+": in-progress past grace period"); err != nil {
			return nil, mapDBError(err)
		}
		req.Status = domain.StatusPending
	}

	if err := tx.Commit(); err != nil {
		return nil, mapDBError(err)
	}
	return stuck, nil
}

// insertAudit appends one transition entry inside the caller's transaction.
func insertAudit(ctx context.Context, tx *sql.Tx, correlationID string, prior *domain.Status, next domain.Status, detail string) error {
	var priorVal interface{}
	if prior != nil {
		priorVal = string(*prior)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO request_audit_log (correlation_id, prior_status, new_status, detail)
		VALUES (?, ?, ?, ?)
	`, correlationID, priorVal, string(next), detail)
	return err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	var status string
	err := row.Scan(
		&req.CorrelationID,
		&req.ClientRequestID,
		&req.AccountID,
		&req.TargetPlatform,
		&req.PrincipalType,
		&req.PrincipalName,
		&req.Action,
		&req.PermissionRef,
		&req.PermissionType,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = domain.Status(status)
	return &req, nil
}
