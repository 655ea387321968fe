package mysql

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

// Save insert/update Diagnosis record
func (r *DiagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis) error {
	const q = `
INSERT INTO plant_diagnoses
(id, tenant_id, triggered_at, crop_hint, image_url, mime_type, state,
 status, disease_name, scientific_name, confidence,
 symptoms_json, causes_json, treatment, prevention,
 error_message, duration_ms, source)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 image_url=VALUES(image_url), state=VALUES(state),
 status=VALUES(status), disease_name=VALUES(disease_name),
 scientific_name=VALUES(scientific_name), confidence=VALUES(confidence),
 symptoms_json=VALUES(symptoms_json), causes_json=VALUES(causes_json),
 treatment=VALUES(treatment), prevention=VALUES(prevention),
 error_message=VALUES(error_message), duration_ms=VALUES(duration_ms);
`
	// Ensure non-nullable string fields have safe defaults
	tenant := stringOrDash(d.TenantID)
	state := stringOrDash(string(d.State))
	triggered := d.TriggeredAt
	if triggered.IsZero() {
		triggered = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		d.ID, tenant, triggered, d.CropHint, d.ImageURL, d.MIMEType, state,
		string(d.Result.Status), d.Result.DiseaseName, d.Result.ScientificName, d.Result.Confidence,
		marshalList(d.Result.Symptoms), marshalList(d.Result.Causes),
		d.Result.Treatment, d.Result.Prevention,
		d.ErrorMessage, d.DurationMS, d.Source,
	)
	return err
}

// Get by ID + Tenant
func (r *DiagnosisRepository) Get(ctx context.Context, tenant string, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)
	return scanDiagnosis(row)
}

// Latest diagnoses per tenant
func (r *DiagnosisRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Diagnosis, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=? ORDER BY triggered_at DESC LIMIT ?;
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

// Paginate with offset + limit (classic pagination)
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
		`SELECT COUNT(*) FROM plant_diagnoses WHERE tenant_id=?;`, tenant,
	).Scan(&total); err != nil {
		return domain.PaginatedResult{}, err
	}

	const q = `
SELECT ` + diagnosisColumns + `
FROM plant_diagnoses
WHERE tenant_id=?
ORDER BY triggered_at DESC, id DESC
LIMIT ? OFFSET ?;
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
SELECT COUNT(*) AS total_diagnoses,
       COALESCE(SUM(status='healthy'),0)  AS healthy,
       COALESCE(SUM(status='diseased'),0) AS diseased,
       COALESCE(SUM(state='failed'),0)    AS failed
FROM plant_diagnoses
WHERE tenant_id=? AND triggered_at >= ?;
`
	var t, h, d, f int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &h, &d, &f); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, h, d, f, nil
}

// rowScanner covers both *sql.Row and *sql.Rows
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
