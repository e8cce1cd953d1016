package classify

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// classification is the parsed model output for the initial classification.
type classification struct {
	ThemeID       string  `json:"theme_id"`
	Confidence    float64 `json:"confidence"`
	Rationale     string  `json:"rationale"`
	BusinessModel string  `json:"business_model"`
}

// verification is the parsed search-verification output.
type verification struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason"`
}

func parseClassification(text string) (*classification, error) {
	var result classification
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return nil, eris.Wrap(err, "classify: parse classification response")
	}
	result.ThemeID = strings.TrimSpace(result.ThemeID)
	if result.ThemeID == "" {
		return nil, eris.New("classify: classification response missing theme_id")
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

func parseVerification(text string) (*verification, error) {
	var result verification
	if err := json.Unmarshal([]byte(cleanJSON(text)), &result); err != nil {
		return nil, eris.Wrap(err, "classify: parse verification response")
	}
	return &result, nil
}

// cleanJSON strips markdown fences and surrounding prose so the first JSON
// object in the text can be unmarshaled.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
