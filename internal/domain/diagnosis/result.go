package diagnosis

import (
	"encoding/json"
	"strings"
)

// AnalysisResult is the structured diagnosis returned by the vision model.
// Treatment and Prevention carry lightweight markdown for rich rendering.
// Every field is optional on the wire; a missing field stays a zero value.
type AnalysisResult struct {
	Status         PlantStatus `json:"status,omitempty"`
	DiseaseName    string      `json:"disease_name,omitempty"`
	ScientificName string      `json:"scientific_name,omitempty"`
	Confidence     string      `json:"confidence,omitempty"`
	Symptoms       []string    `json:"symptoms,omitempty"`
	Causes         []string    `json:"causes,omitempty"`
	Treatment      string      `json:"treatment,omitempty"`
	Prevention     string      `json:"prevention,omitempty"`
}

// IsZero reports whether nothing was extracted from the model output.
func (r AnalysisResult) IsZero() bool {
	return r.Status == "" && r.DiseaseName == "" && r.ScientificName == "" &&
		r.Confidence == "" && len(r.Symptoms) == 0 && len(r.Causes) == 0 &&
		r.Treatment == "" && r.Prevention == ""
}

// Classify resolves the plant status. The explicit status enum from the
// model wins; otherwise fall back to the legacy substring convention on
// the disease name ("healthy", case-insensitive).
func (r AnalysisResult) Classify() PlantStatus {
	switch r.Status {
	case StatusHealthy, StatusDiseased:
		return r.Status
	}
	if r.DiseaseName == "" {
		return StatusUnknown
	}
	if strings.Contains(strings.ToLower(r.DiseaseName), "healthy") {
		return StatusHealthy
	}
	return StatusDiseased
}

// ParseAnalysis decodes a model response body into an AnalysisResult.
// Models wrap JSON in markdown fences often enough that we strip them
// first. In lenient mode a body that still fails to decode yields an
// empty result and a nil error; strict mode propagates the decode error.
func ParseAnalysis(raw []byte, strict bool) (AnalysisResult, error) {
	var out AnalysisResult
	body := stripFences(raw)
	if err := json.Unmarshal(body, &out); err != nil {
		if strict {
			return AnalysisResult{}, err
		}
		return AnalysisResult{}, nil
	}
	out.Status = normalizeStatus(out.Status)
	return out, nil
}

func normalizeStatus(s PlantStatus) PlantStatus {
	switch PlantStatus(strings.ToLower(string(s))) {
	case StatusHealthy:
		return StatusHealthy
	case StatusDiseased:
		return StatusDiseased
	case "":
		return ""
	}
	return StatusUnknown
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return []byte(strings.TrimSpace(s))
}
