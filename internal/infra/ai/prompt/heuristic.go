package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Heuristic is an offline Analyzer for environments without a hosted
// model (local dev, CI). It inspects pixel color distribution and
// returns a JSON string matching the diagnosis schema. It never prints;
// it only returns the JSON string.
type Heuristic struct{}

type heuristicOutput struct {
	Status         string   `json:"status"`
	DiseaseName    string   `json:"disease_name"`
	ScientificName string   `json:"scientific_name"`
	Confidence     string   `json:"confidence"`
	Symptoms       []string `json:"symptoms"`
	Causes         []string `json:"causes"`
	Treatment      string   `json:"treatment"`
	Prevention     string   `json:"prevention"`
}

// AnalyzeImage classifies the leaf from rough color statistics: a high
// share of yellow/brown pixels relative to green reads as chlorosis or
// necrosis. Deliberately conservative; this is a stand-in, not a model.
func (Heuristic) AnalyzeImage(ctx context.Context, img []byte, mimeType, cropHint string) (string, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	var green, yellow, brown, total int
	b := decoded.Bounds()
	// sample a grid rather than every pixel; large photos are common
	stepX := max(1, b.Dx()/200)
	stepY := max(1, b.Dy()/200)
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			r, g, bl, _ := decoded.At(x, y).RGBA()
			r8, g8, b8 := int(r>>8), int(g>>8), int(bl>>8)
			total++
			switch {
			case g8 > r8+20 && g8 > b8+20:
				green++
			case r8 > 130 && g8 > 100 && b8 < 100 && r8-g8 < 70:
				yellow++
			case r8 > 80 && r8 < 180 && g8 < r8-20 && b8 < g8:
				brown++
			}
		}
	}
	if total == 0 {
		return "", fmt.Errorf("empty image bounds")
	}

	damaged := float64(yellow+brown) / float64(total)
	healthy := damaged < 0.08 && green > 0

	out := heuristicOutput{
		Symptoms: []string{},
		Causes:   []string{},
	}
	if healthy {
		out.Status = "healthy"
		out.DiseaseName = "Healthy"
		out.Confidence = "60%"
		out.Treatment = "No action needed."
		out.Prevention = "Maintain the current watering and feeding schedule."
	} else {
		out.Status = "diseased"
		out.DiseaseName = "Leaf discoloration (heuristic)"
		out.Confidence = "40%"
		if yellow >= brown {
			out.Symptoms = append(out.Symptoms, "Yellowing across the leaf surface")
			out.Causes = append(out.Causes, "Possible nitrogen deficiency or early blight")
		} else {
			out.Symptoms = append(out.Symptoms, "Brown necrotic patches")
			out.Causes = append(out.Causes, "Possible fungal infection or scorch")
		}
		out.Treatment = "### Next steps\n- Confirm with a proper diagnosis; this is a color heuristic only.\n- Remove the most affected leaves."
		out.Prevention = "- Avoid overhead watering late in the day.\n- Check soil nutrients."
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal heuristic output: %w", err)
	}
	return string(data), nil
}
