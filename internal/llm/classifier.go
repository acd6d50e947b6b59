package llm

import (
	"context"
	"log/slog"

	"bilisort/internal/model"
)

// Classifier implements the service.Classifier interface on top of a
// provider client.
type Classifier struct {
	client Client
	logger *slog.Logger
}

// NewClassifier creates a classifier for the configured provider.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger}, nil
}

// NewClassifierWithClient wraps an existing provider client; used by tests.
func NewClassifierWithClient(client Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger}
}

// ClassifyBatch classifies one batch of videos against the folder
// catalogue. Errors from the provider call itself are returned as-is (the
// caller's retry policy applies); a parse failure on a successful response
// comes back wrapped in common.ErrMalformedResponse.
func (c *Classifier) ClassifyBatch(ctx context.Context, videos []model.Video, folders []model.Folder) (model.SuggestionSet, error) {
	prompt := buildPrompt(videos, folders)

	content, err := c.client.Complete(ctx, prompt, systemPrompt)
	if err != nil {
		return nil, err
	}

	results, err := parseClassifications(content)
	if err != nil {
		snippet := content
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		c.logger.Warn("failed to parse classification response",
			"error", err,
			"response_prefix", snippet)
		return nil, err
	}

	c.logger.Debug("batch classified",
		"videos", len(videos),
		"classified", len(results))
	return results, nil
}
