package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// SuggesterConfig holds the classification tunables.
type SuggesterConfig struct {
	// BatchSize is how many videos one provider call covers.
	BatchSize int
	// MaxRetries is how many times a failed batch is re-attempted
	// after its first try.
	MaxRetries int
	// BackoffUnit scales the linear backoff between batch retries.
	BackoffUnit time.Duration
}

// DefaultSuggesterConfig returns the production tunables.
func DefaultSuggesterConfig() SuggesterConfig {
	return SuggesterConfig{
		BatchSize:   10,
		MaxRetries:  2,
		BackoffUnit: 2 * time.Second,
	}
}

// ClassifyResult is the outcome of one classification run.
type ClassifyResult struct {
	// Results holds every accumulated suggestion, previously cached
	// entries included.
	Results model.SuggestionSet
	// FailedCount is how many videos belonged to batches that
	// exhausted their retries.
	FailedCount int
}

// Suggester runs the classification pipeline: it splits the unclassified
// videos into batches, dispatches all batches to the provider in
// parallel, retries failed batches with linear backoff, and merges
// whatever succeeded into the accumulated suggestion set. One bad batch
// costs only its own videos.
type Suggester struct {
	classifier service.Classifier
	cfg        SuggesterConfig
	logger     *slog.Logger
}

// NewSuggester creates a suggester using the given provider classifier.
func NewSuggester(classifier service.Classifier, cfg SuggesterConfig, logger *slog.Logger) *Suggester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{classifier: classifier, cfg: cfg, logger: logger}
}

// Classify classifies every valid video that has no cached suggestion
// yet. Videos whose key already appears in existing are skipped, so a
// re-run after a partial failure only pays for the gaps. progress is
// called with (completed, total) batch counts as batches finish, in
// completion order; it may be nil.
func (s *Suggester) Classify(
	ctx context.Context,
	videos []model.Video,
	folders []model.Folder,
	sourceFolderID int64,
	settings model.Settings,
	existing model.SuggestionSet,
	progress func(completed, total int),
) (ClassifyResult, error) {
	var targets []model.Folder
	for _, f := range folders {
		if f.ID != sourceFolderID {
			targets = append(targets, f)
		}
	}
	if len(targets) == 0 {
		return ClassifyResult{}, common.ErrNoTargetFolders
	}

	var valid []model.Video
	for _, v := range videos {
		if v.Valid() {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return ClassifyResult{}, common.ErrNoValidVideos
	}

	if settings.ActiveKey() == "" {
		return ClassifyResult{}, fmt.Errorf("%w: provider %s", common.ErrMissingAPIKey, settings.ActiveProvider())
	}

	results := make(model.SuggestionSet, len(existing)+len(valid))
	for bvid, suggestions := range existing {
		results[bvid] = suggestions
	}

	var pending []model.Video
	for _, v := range valid {
		if _, ok := results[v.BVID]; !ok {
			pending = append(pending, v)
		}
	}
	if len(pending) == 0 {
		s.logger.Info("all videos already classified", "videos", len(valid))
		return ClassifyResult{Results: results}, nil
	}

	batches := chunkVideos(pending, s.cfg.BatchSize)
	s.logger.Info("classifying videos",
		"provider", settings.ActiveProvider(),
		"videos", len(pending),
		"batches", len(batches))

	var (
		mu          sync.Mutex
		completed   int
		failedCount int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			set, err := s.classifyBatch(gctx, batch, targets)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failedCount += len(batch)
				s.logger.Warn("batch failed after retries",
					"videos", len(batch),
					"error", err)
			} else {
				for bvid, suggestions := range set {
					results[bvid] = suggestions
				}
			}
			completed++
			if progress != nil {
				progress(completed, len(batches))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ClassifyResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ClassifyResult{}, err
	}

	return ClassifyResult{Results: results, FailedCount: failedCount}, nil
}

// classifyBatch runs one batch through the provider with retries. A
// malformed provider response is not retried: the call succeeded, the
// content is junk, and asking again costs tokens for the same junk.
func (s *Suggester) classifyBatch(ctx context.Context, batch []model.Video, targets []model.Folder) (model.SuggestionSet, error) {
	var set model.SuggestionSet
	err := common.WithRetry(ctx, func() error {
		result, err := s.classifier.ClassifyBatch(ctx, batch, targets)
		if err != nil {
			if common.ClassifyPolicy.Classify(err) == common.ActionSkip {
				s.logger.Warn("batch response unparseable, keeping empty result", "videos", len(batch))
				set = model.SuggestionSet{}
				return nil
			}
			return &common.RetryableError{Err: err, Retryable: true}
		}
		set = result
		return nil
	}, service.RetryOptions{
		MaxAttempts: s.cfg.MaxRetries + 1,
		BackoffUnit: s.cfg.BackoffUnit,
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func chunkVideos(videos []model.Video, size int) [][]model.Video {
	var batches [][]model.Video
	for start := 0; start < len(videos); start += size {
		end := start + size
		if end > len(videos) {
			end = len(videos)
		}
		batches = append(batches, videos[start:end])
	}
	return batches
}
