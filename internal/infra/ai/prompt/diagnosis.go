package prompt

import (
	"fmt"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are an expert plant pathologist. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- status must be exactly "healthy" or "diseased".
- If the plant is healthy, set disease_name to "Healthy" and leave symptoms and causes empty.
- confidence is a display string such as "95%".
- symptoms and causes are arrays of short strings, most significant first.
- treatment and prevention are markdown strings; headings, lists and emphasis are allowed.
- If the image is not a plant or is too unclear to judge, still return the object with status "diseased" only when disease is visible; otherwise use your best conservative judgement.

Schema (example with empty values):
{
  "status": "<healthy|diseased>",
  "disease_name": "<string>",
  "scientific_name": "<string>",
  "confidence": "<string>",
  "symptoms": ["<string>"],
  "causes": ["<string>"],
  "treatment": "<markdown string>",
  "prevention": "<markdown string>"
}`
}

// GetUserPrompt builds a compact user message next to the image part.
func GetUserPrompt(cropHint string) string {
	base := "Diagnose any plant disease visible in this leaf photo and respond with the JSON per schema."
	if cropHint == "" {
		return base
	}
	return fmt.Sprintf("%s The grower says the crop is: %s.", base, cropHint)
}
