package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"bilisort/internal/common"
	"bilisort/internal/model"
)

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	braceRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON strips a markdown code fence around the payload, or falls
// back to the outermost brace pair.
func extractJSON(content string) string {
	if m := fenceRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := braceRe.FindString(content); m != "" {
		return m
	}
	return strings.TrimSpace(content)
}

// parseClassifications parses a provider response into a suggestion set.
// Suggestions are truncated to 5 per video and confidences clamped to [0,1].
// A response without a well-formed classifications array is a parse
// failure, wrapped in ErrMalformedResponse.
func parseClassifications(content string) (model.SuggestionSet, error) {
	var payload struct {
		Classifications []struct {
			BVID        string `json:"bvid"`
			Suggestions []struct {
				FolderID   int64   `json:"folder_id"`
				FolderName string  `json:"folder_name"`
				Confidence float64 `json:"confidence"`
			} `json:"suggestions"`
		} `json:"classifications"`
	}

	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if payload.Classifications == nil {
		return nil, fmt.Errorf("%w: missing classifications array", common.ErrMalformedResponse)
	}

	results := make(model.SuggestionSet)
	for _, c := range payload.Classifications {
		if c.BVID == "" || c.Suggestions == nil {
			continue
		}
		suggestions := make([]model.Suggestion, 0, len(c.Suggestions))
		for _, s := range c.Suggestions {
			if s.FolderID == 0 || s.FolderName == "" {
				continue
			}
			suggestions = append(suggestions, model.Suggestion{
				FolderID:   s.FolderID,
				FolderName: s.FolderName,
				Confidence: s.Confidence,
			})
		}
		results[c.BVID] = model.NormalizeSuggestions(suggestions)
	}
	return results, nil
}
