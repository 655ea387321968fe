package diagerrors

import "time"

// DiagnosisError represents a persisted workflow failure entry
type DiagnosisError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	DiagnosisID string    `json:"diagnosis_id"`
	Phase       string    `json:"phase,omitempty"` // upload | analyze | parse | persist
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
