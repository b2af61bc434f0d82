package repository

import (
	"context"
	"database/sql"

	"csecbridge/internal/domain"
)

var _ domain.ReferenceRepository = (*ReferenceRepo)(nil)

// ReferenceRepo reads provider-side reference ids recorded on successful
// execution.
type ReferenceRepo struct {
	readDB *sql.DB
}

func NewReferenceRepo(readDB *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{readDB: readDB}
}

func (r *ReferenceRepo) ListByRequest(ctx context.Context, correlationID string) ([]domain.ExternalReference, error) {
	rows, err := r.readDB.QueryContext(ctx, `
		SELECT id, correlation_id, platform, reference_id, created_at
		FROM external_references
		WHERE correlation_id = ?
		ORDER BY id
	`, correlationID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close()

	var out []domain.ExternalReference
	for rows.Next() {
		var ref domain.ExternalReference
		if err := rows.Scan(&ref.ID, &ref.CorrelationID, &ref.Platform, &ref.ReferenceID, &ref.CreatedAt); err != nil {
			return nil, mapDBError(err)
		}
		out = append(out, ref)
	}
	return out, mapDBError(rows.Err())
}
