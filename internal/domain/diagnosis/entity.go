package diagnosis

import (
	"time"
)

// ID tipe for a Diagnosis
type DiagnosisID string

// WorkflowState enum
type WorkflowState string

const (
	StateIdle      WorkflowState = "idle"
	StateAnalyzing WorkflowState = "analyzing"
	StateReady     WorkflowState = "ready"
	StateFailed    WorkflowState = "failed"
)

// PlantStatus enum. The model is asked for this explicitly so the
// classification does not hang on string matching alone.
type PlantStatus string

const (
	StatusHealthy  PlantStatus = "healthy"
	StatusDiseased PlantStatus = "diseased"
	StatusUnknown  PlantStatus = "unknown"
)

// Aggregate Root: Diagnosis
type Diagnosis struct {
	ID           DiagnosisID    `json:"id"`
	TenantID     string         `json:"tenant_id"`
	TriggeredAt  time.Time      `json:"triggered_at"`
	CropHint     string         `json:"crop_hint,omitempty"`
	ImageURL     string         `json:"image_url,omitempty"`
	MIMEType     string         `json:"mime_type,omitempty"`
	State        WorkflowState  `json:"state"`
	Result       AnalysisResult `json:"result"`
	ErrorMessage string         `json:"error_message,omitempty"`
	DurationMS   int64          `json:"duration_ms"`
	Source       string         `json:"source,omitempty"`
	Metadata     any            `json:"metadata,omitempty"`
}
