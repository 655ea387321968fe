package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowBeginEntersAnalyzingAndClearsOutcome(t *testing.T) {
	w := NewWorkflow()
	require.Equal(t, StateIdle, w.State())

	gen := w.Begin()
	require.True(t, w.Complete(gen, AnalysisResult{DiseaseName: "Late blight"}))
	require.Equal(t, StateReady, w.State())

	// A new Begin discards the previous result before the call resolves
	w.Begin()
	snap := w.Snapshot()
	assert.Equal(t, StateAnalyzing, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)
}

func TestWorkflowCompleteExposesResult(t *testing.T) {
	w := NewWorkflow()
	gen := w.Begin()

	res := AnalysisResult{
		DiseaseName:    "Powdery mildew",
		ScientificName: "Erysiphe cichoracearum",
		Confidence:     "92%",
		Symptoms:       []string{"White powdery spots"},
		Causes:         []string{"High humidity"},
		Treatment:      "Apply sulfur-based fungicide.",
		Prevention:     "Improve air circulation.",
	}
	require.True(t, w.Complete(gen, res))

	snap := w.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, res, *snap.Result)
	assert.Empty(t, snap.Error)
}

func TestWorkflowFailExposesMessageOnly(t *testing.T) {
	w := NewWorkflow()
	gen := w.Begin()

	require.True(t, w.Fail(gen, FailureMessage))

	snap := w.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Result)
	assert.Equal(t, FailureMessage, snap.Error)
}

func TestWorkflowStaleResolutionIsDiscarded(t *testing.T) {
	w := NewWorkflow()
	first := w.Begin()
	second := w.Begin()

	// slow first call resolves after a newer submission
	assert.False(t, w.Complete(first, AnalysisResult{DiseaseName: "stale"}))
	assert.Equal(t, StateAnalyzing, w.State())

	require.True(t, w.Complete(second, AnalysisResult{DiseaseName: "Rust"}))
	snap := w.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Rust", snap.Result.DiseaseName)
}

func TestWorkflowStaleFailureIsDiscarded(t *testing.T) {
	w := NewWorkflow()
	first := w.Begin()
	second := w.Begin()

	assert.False(t, w.Fail(first, FailureMessage))
	require.True(t, w.Complete(second, AnalysisResult{DiseaseName: "Healthy"}))
	assert.Equal(t, StateReady, w.State())
}

func TestWorkflowResetIsUnconditionalAndIdempotent(t *testing.T) {
	w := NewWorkflow()

	gen := w.Begin()
	require.True(t, w.Complete(gen, AnalysisResult{DiseaseName: "Scab"}))

	w.Reset()
	snap := w.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)

	w.Reset()
	assert.Equal(t, snap, w.Snapshot())

	// reset from Analyzing too, and the in-flight call cannot resurrect state
	gen = w.Begin()
	w.Reset()
	assert.False(t, w.Complete(gen, AnalysisResult{DiseaseName: "zombie"}))
	assert.Equal(t, StateIdle, w.State())

	// reset from Failed
	gen = w.Begin()
	require.True(t, w.Fail(gen, FailureMessage))
	w.Reset()
	assert.Equal(t, StateIdle, w.State())
}

func TestWorkflowNeverHoldsResultAndErrorTogether(t *testing.T) {
	w := NewWorkflow()

	gen := w.Begin()
	require.True(t, w.Fail(gen, FailureMessage))

	gen = w.Begin()
	require.True(t, w.Complete(gen, AnalysisResult{DiseaseName: "Blight"}))

	snap := w.Snapshot()
	assert.NotNil(t, snap.Result)
	assert.Empty(t, snap.Error)
}

func TestWorkflowSnapshotReturnsCopy(t *testing.T) {
	w := NewWorkflow()
	gen := w.Begin()
	require.True(t, w.Complete(gen, AnalysisResult{DiseaseName: "Blight"}))

	snap := w.Snapshot()
	snap.Result.DiseaseName = "mutated"

	assert.Equal(t, "Blight", w.Snapshot().Result.DiseaseName)
}
