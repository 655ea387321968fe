package postgres

import (
	"context"
	"database/sql"
	"math"
	"time"

	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagnosis"
)

type DiagnosisRepository struct {
	db *sql.DB
}

func NewDiagnosisRepository(db *sql.DB) *DiagnosisRepository {
	return &DiagnosisRepository{db: db}
}

const diagnosisColumns = `id, tenant_id, triggered_at, crop_hint, image_url, mime_type, state,
       status, disease_name, scientific_name, confidence,
       symptoms_json, causes_json, treatment, prevention,
       error_message, duration_ms, source`

// Save inserts or updates a diagnosis record
func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	const q = `
INSERT INTO plant_diagnoses
  (id, tenant_id, triggered_at, crop_hint, image_url, mime_type, state,
   status, disease_name, scientific_name, confidence,
   symptoms_json, causes_json, treatment, prevention,
   error_message, duration_ms, source)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
  image_url=EXCLUDED.image_url, state=EXCLUDED.state,
  status=EXCLUDED.status, disease_name=EXCLUDED.disease_name,
  scientific_name=EXCLUDED.scientific_name, confidence=EXCLUDED.confidence,
  symptoms_json=EXCLUDED.symptoms_json, causes_json=EXCLUDED.causes_json,
  treatment=EXCLUDED.treatment, prevention=EXCLUDED.prevention,
  error_message=EXCLUDED.error_message, duration_ms=EXCLUDED.duration_ms;
`
	tenant := stringOrDash(d.TenantID)
	triggered := d.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		d.ID, tenant, triggered, d.CropHint, d.ImageURL, d.MIMEType, string(d.State),
		string(d.Result.Status), d.Result.DiseaseName, d.Result.ScientificName, d.Result.Confidence,
		marshalList(d.Result.Symptoms), marshalList(d.Result.Causes),
		d.Result.Treatment, d.Result.Prevention,
		d.ErrorMessage, d.DurationMS, d.Source,
	)
	return err
}

// Get returns one diagnosis by tenant + id
func (r *DiagnosisRepository) Get(ctx context.Context, tenant string, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=$1 AND id=$2 LIMIT 1;
`
	return scanDiagnosis(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest returns the N newest diagnoses
func (r *DiagnosisRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Diagnosis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=$1 ORDER BY triggered_at DESC LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Paginate returns a page ordered by triggered_at desc
func (r *DiagnosisRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plant_diagnoses WHERE tenant_id=$1;`, tenant,
	).Scan(&total); err != nil {
		return domain.PaginatedResult{}, err
	}

	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=$1
ORDER BY triggered_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, err
	}
	defer rows.Close()

	var data []*domain.Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return domain.PaginatedResult{}, err
		}
		data = append(data, d)
	}
	if err := rows.Err(); err != nil {
		return domain.PaginatedResult{}, err
	}

	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Summary counts diagnosis outcomes since N days
func (r *DiagnosisRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status='healthy' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN status='diseased' THEN 1 ELSE 0 END),0),
       COALESCE(SUM(CASE WHEN state='failed' THEN 1 ELSE 0 END),0)
FROM plant_diagnoses
WHERE tenant_id=$1 AND triggered_at >= $2;
`
	var t, h, d, f int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &h, &d, &f); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, h, d, f, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagnosis(row rowScanner) (*domain.Diagnosis, error) {
	var d domain.Diagnosis
	var status, symptoms, causes string
	if err := row.Scan(
		&d.ID, &d.TenantID, &d.TriggeredAt, &d.CropHint, &d.ImageURL, &d.MIMEType, &d.State,
		&status, &d.Result.DiseaseName, &d.Result.ScientificName, &d.Result.Confidence,
		&symptoms, &causes, &d.Result.Treatment, &d.Result.Prevention,
		&d.ErrorMessage, &d.DurationMS, &d.Source,
	); err != nil {
		return nil, err
	}
	d.Result.Status = domain.PlantStatus(status)
	d.Result.Symptoms = unmarshalList(symptoms)
	d.Result.Causes = unmarshalList(causes)
	return &d, nil
}
