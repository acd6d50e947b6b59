package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"bilisort/internal/model"
)

// systemPrompt instructs the provider to answer with bare JSON.
const systemPrompt = "You are a video classification assistant. Using each video's title, uploader, " +
	"description and tags, assign it to the most fitting folders from the catalogue. " +
	"Respond with JSON only, no explanatory text."

// buildPrompt renders the folder catalogue (with sample titles) and the
// batch of videos into one classification request.
func buildPrompt(videos []model.Video, folders []model.Folder) string {
	var sb strings.Builder

	sb.WriteString("Classify the following videos into the most fitting folders.\n\n")
	sb.WriteString("## Available folders\n\n")
	for _, f := range folders {
		fmt.Fprintf(&sb, "- %s (ID: %d, %d videos)", f.Name, f.ID, f.MediaCount)
		if len(f.SampleTitles) > 0 {
			n := len(f.SampleTitles)
			if n > 5 {
				n = 5
			}
			fmt.Fprintf(&sb, "\n  examples: %s", strings.Join(f.SampleTitles[:n], ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Videos to classify\n\n")
	for _, v := range videos {
		fmt.Fprintf(&sb, "- BVID: %s\n  title: %s\n  uploader: %s", v.BVID, v.Title, v.UpperName)
		if v.Intro != "" {
			fmt.Fprintf(&sb, "\n  description: %s", truncateRunes(v.Intro, 100))
		}
		if len(v.Tags) > 0 {
			fmt.Fprintf(&sb, "\n  tags: %s", strings.Join(v.Tags, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
## Output format

Return JSON:
{
  "classifications": [
    {
      "bvid": "<video BVID>",
      "suggestions": [
        {"folder_id": <folder ID>, "folder_name": "<folder name>", "confidence": 0.95}
      ]
    }
  ]
}

Return at most 5 suggestions per video, ordered by descending confidence.
Confidence is in [0,1]: >=0.8 high, 0.5-0.8 medium, <0.5 low.`)

	return sb.String()
}

// truncateRunes shortens s to at most n runes, never splitting a
// multi-byte character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
