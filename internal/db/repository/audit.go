package repository

import (
	"context"
	"database/sql"

	"csecbridge/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo reads the append-only transition log. Writes happen inside the
// RequestRepo transactions; there is no standalone audit write path.
type AuditRepo struct {
	readDB *sql.DB
}

func NewAuditRepo(readDB *sql.DB) *AuditRepo {
	return &AuditRepo{readDB: readDB}
}

// ListByRequest returns the transition history for a request in insertion
// order, oldest first.
func (r *AuditRepo) ListByRequest(ctx context.Context, correlationID string) ([]domain.AuditLogEntry, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, correlation_id, prior_status, new_status, detail, created_at
		FROM request_audit_log
		WHERE correlation_id = ?
		ORDER BY id
	`, correlationID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.AuditLogEntry
	for rows.Next() {
		var e domain.AuditLogEntry
		var prior sql.NullString
		var next string
		if err := rows.Scan(&e.ID, &e.CorrelationID, &prior, &next, &e.Detail, &e.CreatedAt); err != nil {
			return nil, mapDBError(err)
		}
		if prior.Valid {
			s := domain.Status(prior.String)
			e.PriorStatus = &s
		}
		e.NewStatus = domain.Status(next)
		out = append(out, e)
	}
	return out, mapDBError(rows.Err())
}
