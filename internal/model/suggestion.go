package model

import "sort"

// MaxSuggestionsPerVideo caps the number of suggestions kept per item.
const MaxSuggestionsPerVideo = 5

// Suggestion is one candidate target folder for a video, with the
// classifier's confidence in [0,1].
type Suggestion struct {
	FolderID   int64   `json:"folder_id"`
	FolderName string  `json:"folder_name"`
	Confidence float64 `json:"confidence"`
}

// SuggestionSet maps a video identity to its suggestions, ordered
// non-increasing by confidence. A video present as a key is considered
// already classified and is excluded from future classification requests
// until explicitly invalidated.
type SuggestionSet map[string][]Suggestion

// NormalizeSuggestions clamps confidences to [0,1], sorts non-increasing
// by confidence, and truncates to MaxSuggestionsPerVideo.
func NormalizeSuggestions(suggestions []Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Confidence < 0 {
			s.Confidence = 0
		} else if s.Confidence > 1 {
			s.Confidence = 1
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > MaxSuggestionsPerVideo {
		out = out[:MaxSuggestionsPerVideo]
	}
	return out
}
