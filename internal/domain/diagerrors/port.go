package diagerrors

import (
	"context"
)

// Repository defines persistence for diagnosis errors
type Repository interface {
	Save(ctx context.Context, e *DiagnosisError) error
	ListByDiagnosis(ctx context.Context, tenant string, diagnosisID string, limit int) ([]*DiagnosisError, error)
}
