package postgres

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagerrors"
)

type DiagnosisErrorRepository struct {
	db *sql.DB
}

func NewDiagnosisErrorRepository(db *sql.DB) *DiagnosisErrorRepository {
	return &DiagnosisErrorRepository{db: db}
}

// Save appends one workflow failure entry
func (r *DiagnosisErrorRepository) Save(ctx context.Context, e *domain.DiagnosisError) error {
	const q = `
INSERT INTO diagnosis_errors
  (tenant_id, diagnosis_id, phase, message, details_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6);
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	details := e.DetailsJSON
	if details == "" {
		details = "{}"
	}
	_, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.TenantID), e.DiagnosisID, e.Phase, e.Message, details, created,
	)
	return err
}

// ListByDiagnosis returns failures of one diagnosis, newest first
func (r *DiagnosisErrorRepository) ListByDiagnosis(ctx context.Context, tenant string, diagnosisID string, limit int) ([]*domain.DiagnosisError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, diagnosis_id, phase, message, details_json, created_at
FROM diagnosis_errors
WHERE tenant_id=$1 AND diagnosis_id=$2
ORDER BY created_at DESC, id DESC
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, diagnosisID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DiagnosisError
	for rows.Next() {
		var e domain.DiagnosisError
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DiagnosisID, &e.Phase, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
