package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/application"
	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagerrors"
	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagnosis"
)

// Service implements use-cases for Diagnosis.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo     domain.Repository
	Errors   diagerrors.Repository // optional; nil disables the audit trail
	Analyzer domain.Analyzer
	Images   domain.ImageStore
	Clock    application.Clock

	// StrictParse decides what an unparseable model body means: false
	// keeps the legacy empty-result behavior, true fails the workflow.
	StrictParse bool

	// per-tenant workflow slots; each tenant sees one "current" analysis
	mu        sync.Mutex
	workflows map[string]*domain.Workflow
}

// workflowFor returns the tenant's workflow slot, creating it lazily.
func (s *Service) workflowFor(tenant string) *domain.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workflows == nil {
		s.workflows = make(map[string]*domain.Workflow)
	}
	wf, ok := s.workflows[tenant]
	if !ok {
		wf = domain.NewWorkflow()
		s.workflows[tenant] = wf
	}
	return wf
}

// Workflow returns the rendering snapshot of the tenant's current analysis.
func (s *Service) Workflow(tenant string) domain.WorkflowSnapshot {
	return s.workflowFor(tenant).Snapshot()
}

// ResetWorkflow clears the tenant's slot back to Idle. A still-running
// submission keeps its database row but can no longer touch the slot.
func (s *Service) ResetWorkflow(tenant string) {
	s.workflowFor(tenant).Reset()
}

//
// ==== USE CASES ====
//

// Command to submit a leaf photo for diagnosis
type SubmitImageCommand struct {
	TenantID string
	Image    []byte
	MIMEType string
	CropHint string
	Source   string
	Metadata any
}

// SubmitImageUntilDone runs the workflow with context.Background() so a
// router goroutine can let it finish after the HTTP request is gone.
func (s *Service) SubmitImageUntilDone(cmd SubmitImageCommand) (*domain.Diagnosis, error) {
	return s.SubmitImage(context.Background(), cmd)
}

// SubmitImage runs one full diagnosis: persist the Analyzing row, store
// the photo, call the vision model exactly once (no retry), decode the
// structured result and persist the terminal row. Any failure along the
// way ends in a Failed row carrying only the fixed user-facing message;
// the underlying cause is logged and written to the error audit repo.
func (s *Service) SubmitImage(ctx context.Context, cmd SubmitImageCommand) (*domain.Diagnosis, error) {
	if len(cmd.Image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	// enter Analyzing before anything slow happens; the generation token
	// keeps a superseded submission from overwriting newer state
	wf := s.workflowFor(cmd.TenantID)
	gen := wf.Begin()

	now := s.Clock.Now()
	id := domain.DiagnosisID(uuid.New().String())

	// Create an initial row so we always have an ID to reference
	d := &domain.Diagnosis{
		ID:          id,
		TenantID:    cmd.TenantID,
		TriggeredAt: now,
		CropHint:    cmd.CropHint,
		MIMEType:    cmd.MIMEType,
		State:       domain.StateAnalyzing,
		Source:      cmd.Source,
		Metadata:    cmd.Metadata,
	}
	if err := s.Repo.Save(ctx, d); err != nil {
		wf.Fail(gen, domain.FailureMessage)
		return d, err
	}

	// store the photo first so the record keeps a viewable copy even
	// when the model call fails
	key := fmt.Sprintf("%s/%s.%s", cmd.TenantID, id, extFromMIME(cmd.MIMEType))
	url, err := s.Images.UploadBytes(ctx, cmd.Image, key, cmd.MIMEType)
	if err != nil {
		return s.markFailed(ctx, wf, gen, d, "upload", err)
	}
	d.ImageURL = url

	// one model call, no retry
	started := s.Clock.Now()
	raw, err := s.Analyzer.AnalyzeImage(ctx, cmd.Image, cmd.MIMEType, cmd.CropHint)
	d.DurationMS = s.Clock.Now().Sub(started).Milliseconds()
	if err != nil {
		return s.markFailed(ctx, wf, gen, d, "analyze", err)
	}

	res, err := domain.ParseAnalysis([]byte(raw), s.StrictParse)
	if err != nil {
		return s.markFailed(ctx, wf, gen, d, "parse", err)
	}
	res.Status = res.Classify()

	d.State = domain.StateReady
	d.Result = res
	if err := s.Repo.Save(ctx, d); err != nil {
		wf.Fail(gen, domain.FailureMessage)
		return d, err
	}
	wf.Complete(gen, res)
	return d, nil
}

// markFailed persists the Failed row and the audit entry. The returned
// error is the underlying cause so HTTP mapping (quota → 429) still
// works; the row itself only carries the generic message.
func (s *Service) markFailed(ctx context.Context, wf *domain.Workflow, gen uint64, d *domain.Diagnosis, phase string, cause error) (*domain.Diagnosis, error) {
	log.Printf("diagnosis %s failed during %s: %v", d.ID, phase, cause)
	wf.Fail(gen, domain.FailureMessage)

	d.State = domain.StateFailed
	d.Result = domain.AnalysisResult{}
	d.ErrorMessage = domain.FailureMessage
	if err := s.Repo.Save(ctx, d); err != nil {
		log.Printf("failed to persist failed diagnosis %s: %v", d.ID, err)
	}

	if s.Errors != nil {
		details, _ := json.Marshal(map[string]string{"cause": cause.Error()})
		_ = s.Errors.Save(ctx, &diagerrors.DiagnosisError{
			TenantID:    d.TenantID,
			DiagnosisID: string(d.ID),
			Phase:       phase,
			Message:     cause.Error(),
			DetailsJSON: string(details),
			CreatedAt:   s.Clock.Now(),
		})
	}
	return d, cause
}

// Get one diagnosis by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Latest N diagnoses for a tenant
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Diagnosis, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Paginate diagnoses, newest first
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// Summary recaps diagnoses over the last N days
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (map[string]any, error) {
	total, healthy, diseased, failed, err := s.Repo.Summary(ctx, tenant, sinceDays)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_diagnoses": total,
		"healthy":         healthy,
		"diseased":        diseased,
		"failed":          failed,
	}, nil
}

// ErrorsFor lists the audit entries of one diagnosis.
func (s *Service) ErrorsFor(ctx context.Context, tenant, id string, limit int) ([]*diagerrors.DiagnosisError, error) {
	if s.Errors == nil {
		return nil, nil
	}
	return s.Errors.ListByDiagnosis(ctx, tenant, id, limit)
}

func extFromMIME(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	}
	return "bin"
}
