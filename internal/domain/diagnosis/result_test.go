package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisFullBody(t *testing.T) {
	raw := `{
		"status": "diseased",
		"disease_name": "Tomato Late Blight",
		"scientific_name": "Phytophthora infestans",
		"confidence": "97%",
		"symptoms": ["Dark water-soaked lesions", "White mold on leaf underside"],
		"causes": ["Cool wet weather", "Infected seed potatoes nearby"],
		"treatment": "## Treatment\n- Remove infected foliage",
		"prevention": "- Rotate crops\n- Water at soil level"
	}`

	res, err := ParseAnalysis([]byte(raw), false)
	require.NoError(t, err)
	assert.Equal(t, StatusDiseased, res.Status)
	assert.Equal(t, "Tomato Late Blight", res.DiseaseName)
	assert.Equal(t, "Phytophthora infestans", res.ScientificName)
	assert.Equal(t, "97%", res.Confidence)
	assert.Equal(t, []string{"Dark water-soaked lesions", "White mold on leaf underside"}, res.Symptoms)
	assert.Equal(t, []string{"Cool wet weather", "Infected seed potatoes nearby"}, res.Causes)
	assert.Equal(t, "## Treatment\n- Remove infected foliage", res.Treatment)
	assert.Equal(t, "- Rotate crops\n- Water at soil level", res.Prevention)
}

func TestParseAnalysisMissingFieldsAreEmptyNotErrors(t *testing.T) {
	res, err := ParseAnalysis([]byte(`{"disease_name":"Healthy"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "Healthy", res.DiseaseName)
	assert.Empty(t, res.ScientificName)
	assert.Empty(t, res.Symptoms)
	assert.Empty(t, res.Causes)
	assert.Empty(t, res.Treatment)
}

func TestParseAnalysisLenientFallsBackToEmptyResult(t *testing.T) {
	res, err := ParseAnalysis([]byte("the model rambled instead of emitting JSON"), false)
	require.NoError(t, err)
	assert.True(t, res.IsZero())
}

func TestParseAnalysisStrictPropagatesDecodeError(t *testing.T) {
	_, err := ParseAnalysis([]byte("not json at all"), true)
	require.Error(t, err)
}

func TestParseAnalysisStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"disease_name\":\"Rust\",\"status\":\"diseased\"}\n```"
	res, err := ParseAnalysis([]byte(raw), true)
	require.NoError(t, err)
	assert.Equal(t, "Rust", res.DiseaseName)
	assert.Equal(t, StatusDiseased, res.Status)
}

func TestParseAnalysisNormalizesStatusCase(t *testing.T) {
	res, err := ParseAnalysis([]byte(`{"status":"HEALTHY"}`), true)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, res.Status)

	res, err = ParseAnalysis([]byte(`{"status":"thriving"}`), true)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, res.Status)
}

func TestClassifyPrefersExplicitStatus(t *testing.T) {
	r := AnalysisResult{Status: StatusDiseased, DiseaseName: "Healthy looking but infected"}
	assert.Equal(t, StatusDiseased, r.Classify())
}

func TestClassifyFallsBackToHealthySubstring(t *testing.T) {
	cases := map[string]PlantStatus{
		"Healthy":            StatusHealthy,
		"healthy plant":      StatusHealthy,
		"PLANT IS HEALTHY":   StatusHealthy,
		"Tomato Late Blight": StatusDiseased,
		"":                   StatusUnknown,
	}
	for name, want := range cases {
		r := AnalysisResult{DiseaseName: name}
		assert.Equal(t, want, r.Classify(), "disease_name=%q", name)
	}
}
