package diagnosis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagerrors"
	domain "github.com/venureddy09/AgroDetect-AI-Plant-Disease-Classification-Engine/internal/domain/diagnosis"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeRepo struct {
	mu    sync.Mutex
	saves []domain.Diagnosis
}

func (r *fakeRepo) Save(ctx context.Context, d *domain.Diagnosis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, *d)
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, tenant string, id domain.DiagnosisID) (*domain.Diagnosis, error) {
	for i := len(r.saves) - 1; i >= 0; i-- {
		if r.saves[i].ID == id && r.saves[i].TenantID == tenant {
			d := r.saves[i]
			return &d, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRepo) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Diagnosis, error) {
	return nil, nil
}

func (r *fakeRepo) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	return domain.PaginatedResult{Page: page, PageSize: pageSize}, nil
}

func (r *fakeRepo) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	return 10, 4, 5, 1, nil
}

func (r *fakeRepo) last() domain.Diagnosis {
	return r.saves[len(r.saves)-1]
}

type fakeAnalyzer struct {
	response string
	err      error
	calls    int
	onCall   func()
}

func (a *fakeAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType, cropHint string) (string, error) {
	a.calls++
	if a.onCall != nil {
		a.onCall()
	}
	return a.response, a.err
}

type fakeStore struct {
	uploads int
	err     error
}

func (s *fakeStore) UploadBytes(ctx context.Context, data []byte, key, contentType string) (string, error) {
	s.uploads++
	if s.err != nil {
		return "", s.err
	}
	return "http://minio.local/leaves/" + key, nil
}

type fakeErrRepo struct {
	entries []diagerrors.DiagnosisError
}

func (r *fakeErrRepo) Save(ctx context.Context, e *diagerrors.DiagnosisError) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeErrRepo) ListByDiagnosis(ctx context.Context, tenant string, id string, limit int) ([]*diagerrors.DiagnosisError, error) {
	return nil, nil
}

func newTestService(an *fakeAnalyzer) (*Service, *fakeRepo, *fakeStore, *fakeErrRepo) {
	repo := &fakeRepo{}
	store := &fakeStore{}
	errRepo := &fakeErrRepo{}
	svc := &Service{
		Repo:     repo,
		Errors:   errRepo,
		Analyzer: an,
		Images:   store,
		Clock:    fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	return svc, repo, store, errRepo
}

const fullResponse = `{
	"status": "diseased",
	"disease_name": "Tomato Late Blight",
	"scientific_name": "Phytophthora infestans",
	"confidence": "97%",
	"symptoms": ["Dark lesions"],
	"causes": ["Cool wet weather"],
	"treatment": "## Treatment\n- Remove infected foliage",
	"prevention": "- Rotate crops"
}`

func cmd() SubmitImageCommand {
	return SubmitImageCommand{
		TenantID: "farm-a",
		Image:    []byte{0xFF, 0xD8, 0xFF, 0xE0},
		MIMEType: "image/jpeg",
		CropHint: "tomato",
	}
}

func TestSubmitImagePersistsAnalyzingBeforeModelCall(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, repo, _, _ := newTestService(an)

	an.onCall = func() {
		// by the time the model is invoked the Analyzing row must exist
		// with no result and no error
		require.Len(t, repo.saves, 1)
		assert.Equal(t, domain.StateAnalyzing, repo.saves[0].State)
		assert.True(t, repo.saves[0].Result.IsZero())
		assert.Empty(t, repo.saves[0].ErrorMessage)
	}

	_, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)
	require.Equal(t, 1, an.calls)
}

func TestSubmitImageSuccessExposesAllFields(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, repo, store, _ := newTestService(an)

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)

	assert.Equal(t, domain.StateReady, d.State)
	assert.Equal(t, "Tomato Late Blight", d.Result.DiseaseName)
	assert.Equal(t, "Phytophthora infestans", d.Result.ScientificName)
	assert.Equal(t, "97%", d.Result.Confidence)
	assert.Equal(t, []string{"Dark lesions"}, d.Result.Symptoms)
	assert.Equal(t, []string{"Cool wet weather"}, d.Result.Causes)
	assert.Equal(t, "## Treatment\n- Remove infected foliage", d.Result.Treatment)
	assert.Equal(t, "- Rotate crops", d.Result.Prevention)
	assert.Equal(t, domain.StatusDiseased, d.Result.Status)
	assert.Empty(t, d.ErrorMessage)
	assert.NotEmpty(t, d.ImageURL)

	// exactly one model call and one upload, no retry
	assert.Equal(t, 1, an.calls)
	assert.Equal(t, 1, store.uploads)
	assert.Equal(t, domain.StateReady, repo.last().State)
}

func TestSubmitImageHealthyScenario(t *testing.T) {
	an := &fakeAnalyzer{response: `{
		"disease_name": "Healthy",
		"scientific_name": "",
		"confidence": "99%",
		"symptoms": [],
		"causes": [],
		"treatment": "No action needed.",
		"prevention": "Maintain watering schedule."
	}`}
	svc, _, _, _ := newTestService(an)

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)

	assert.Equal(t, domain.StateReady, d.State)
	assert.Equal(t, "Healthy", d.Result.DiseaseName)
	assert.Equal(t, "99%", d.Result.Confidence)
	assert.Equal(t, "No action needed.", d.Result.Treatment)
	assert.Equal(t, "Maintain watering schedule.", d.Result.Prevention)
	// no explicit status from the model; the name substring decides
	assert.Equal(t, domain.StatusHealthy, d.Result.Status)
}

func TestSubmitImageTransportFailure(t *testing.T) {
	cause := errors.New("connection reset by peer")
	an := &fakeAnalyzer{err: cause}
	svc, repo, _, errRepo := newTestService(an)

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.ErrorIs(t, err, cause)

	assert.Equal(t, domain.StateFailed, d.State)
	assert.Equal(t, domain.FailureMessage, d.ErrorMessage)
	assert.True(t, d.Result.IsZero())
	assert.Equal(t, domain.StateFailed, repo.last().State)

	require.Len(t, errRepo.entries, 1)
	assert.Equal(t, "analyze", errRepo.entries[0].Phase)
	assert.Equal(t, cause.Error(), errRepo.entries[0].Message)
}

func TestSubmitImageQuotaErrorSurfacesSentinel(t *testing.T) {
	an := &fakeAnalyzer{err: domain.ErrQuotaExceeded}
	svc, _, _, _ := newTestService(an)

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Equal(t, domain.StateFailed, d.State)
	assert.Equal(t, domain.FailureMessage, d.ErrorMessage)
}

func TestSubmitImageUploadFailureSkipsModelCall(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, _, store, errRepo := newTestService(an)
	store.err = errors.New("bucket unavailable")

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, d.State)
	assert.Equal(t, 0, an.calls)

	require.Len(t, errRepo.entries, 1)
	assert.Equal(t, "upload", errRepo.entries[0].Phase)
}

func TestSubmitImageLenientParseYieldsEmptyResult(t *testing.T) {
	an := &fakeAnalyzer{response: "sorry, I cannot help with that"}
	svc, _, _, _ := newTestService(an)

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)

	// documented leniency: not a failure, just an empty diagnosis
	assert.Equal(t, domain.StateReady, d.State)
	assert.Empty(t, d.ErrorMessage)
	assert.Empty(t, d.Result.DiseaseName)
	assert.Equal(t, domain.StatusUnknown, d.Result.Status)
}

func TestSubmitImageStrictParseFailsWorkflow(t *testing.T) {
	an := &fakeAnalyzer{response: "sorry, I cannot help with that"}
	svc, _, _, errRepo := newTestService(an)
	svc.StrictParse = true

	d, err := svc.SubmitImage(context.Background(), cmd())
	require.Error(t, err)
	assert.Equal(t, domain.StateFailed, d.State)
	assert.Equal(t, domain.FailureMessage, d.ErrorMessage)

	require.Len(t, errRepo.entries, 1)
	assert.Equal(t, "parse", errRepo.entries[0].Phase)
}

func TestSubmitImageRejectsEmptyPayload(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, repo, _, _ := newTestService(an)

	c := cmd()
	c.Image = nil
	_, err := svc.SubmitImage(context.Background(), c)
	require.ErrorIs(t, err, domain.ErrEmptyImage)
	assert.Empty(t, repo.saves)
	assert.Equal(t, 0, an.calls)
}

func TestSubmitImageDrivesTenantWorkflow(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, _, _, _ := newTestService(an)

	_, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)

	snap := svc.Workflow("farm-a")
	assert.Equal(t, domain.StateReady, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Tomato Late Blight", snap.Result.DiseaseName)

	// other tenants have their own slot
	assert.Equal(t, domain.StateIdle, svc.Workflow("farm-b").State)

	svc.ResetWorkflow("farm-a")
	snap = svc.Workflow("farm-a")
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)
}

func TestFailedWorkflowSlotCarriesFixedMessage(t *testing.T) {
	an := &fakeAnalyzer{err: errors.New("boom")}
	svc, _, _, _ := newTestService(an)

	_, err := svc.SubmitImage(context.Background(), cmd())
	require.Error(t, err)

	snap := svc.Workflow("farm-a")
	assert.Equal(t, domain.StateFailed, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, domain.FailureMessage, snap.Error)
}

// gateAnalyzer blocks its first call until released so a second, faster
// submission can land first.
type gateAnalyzer struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	gate    chan struct{}
}

func (a *gateAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType, cropHint string) (string, error) {
	a.mu.Lock()
	n := a.calls
	a.calls++
	a.mu.Unlock()

	if n == 0 {
		close(a.started)
		<-a.gate
		return `{"disease_name":"Stale Result"}`, nil
	}
	return `{"disease_name":"Fresh Result"}`, nil
}

func TestSupersededSubmissionCannotOverwriteNewerResult(t *testing.T) {
	an := &gateAnalyzer{started: make(chan struct{}), gate: make(chan struct{})}
	repo := &fakeRepo{}
	svc := &Service{
		Repo:     repo,
		Analyzer: an,
		Images:   &fakeStore{},
		Clock:    fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.SubmitImage(context.Background(), cmd())
	}()

	// wait until the slow submission holds the model call
	<-an.started
	assert.Equal(t, domain.StateAnalyzing, svc.Workflow("farm-a").State)

	// the newer submission completes first
	_, err := svc.SubmitImage(context.Background(), cmd())
	require.NoError(t, err)

	// now let the stale call resolve
	close(an.gate)
	<-done

	snap := svc.Workflow("farm-a")
	assert.Equal(t, domain.StateReady, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Fresh Result", snap.Result.DiseaseName)
}

func TestSummaryShapesRepoCounts(t *testing.T) {
	an := &fakeAnalyzer{response: fullResponse}
	svc, _, _, _ := newTestService(an)

	got, err := svc.Summary(context.Background(), "farm-a", 7)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"total_diagnoses": 10,
		"healthy":         4,
		"diseased":        5,
		"failed":          1,
	}, got)
}
