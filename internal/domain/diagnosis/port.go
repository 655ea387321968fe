package diagnosis

import "context"

// Repository port (persistence of diagnosis records)
type Repository interface {
	Save(ctx context.Context, d *Diagnosis) error
	Get(ctx context.Context, tenant string, id DiagnosisID) (*Diagnosis, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Diagnosis, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int) (PaginatedResult, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error)
}

// Analyzer port (the external vision model). Returns the raw response
// body; decoding is the caller's concern.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType, cropHint string) (string, error)
}

// ImageStore port (object storage for uploaded leaf photos)
type ImageStore interface {
	UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error)
}
