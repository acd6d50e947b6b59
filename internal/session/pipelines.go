package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bilisort/internal/engine"
	"bilisort/internal/model"
)

// StartIndex launches an indexing run and returns its event stream. The
// channel is closed when the run ends; events are dropped, never
// queued, if the consumer falls behind, and abandoning the channel does
// not stop the run.
func (s *Session) StartIndex(ctx context.Context) (<-chan engine.IndexEvent, error) {
	if err := s.begin(PipelineIndex); err != nil {
		return nil, err
	}
	return s.runIndex(ctx), nil
}

// ForceReindex discards every piece of indexed and derived state, then
// launches a fresh indexing run.
func (s *Session) ForceReindex(ctx context.Context) (<-chan engine.IndexEvent, error) {
	if err := s.begin(PipelineIndex); err != nil {
		return nil, err
	}
	if err := s.store.ClearIndex(ctx); err != nil {
		s.finish(PipelineIndex, "", err.Error())
		return nil, err
	}
	return s.runIndex(ctx), nil
}

func (s *Session) runIndex(ctx context.Context) <-chan engine.IndexEvent {
	ch := make(chan engine.IndexEvent, s.cfg.EventBuffer)
	logger := s.logger.With("pipeline", PipelineIndex, "run_id", uuid.NewString())

	emit := func(ev engine.IndexEvent) {
		if ev.Type == engine.IndexProgress {
			s.setProgress(PipelineIndex, fmt.Sprintf("sampling %d/%d: %s", ev.Sampled, ev.Total, ev.Current))
		}
		select {
		case ch <- ev:
		default:
		}
	}

	go func() {
		defer close(ch)

		indexer := engine.NewFolderIndexer(s.store, s.client, s.cfg.Indexer, logger)
		result, err := indexer.Run(ctx, emit)
		if err != nil {
			logger.Error("indexing failed", "error", err)
			s.finish(PipelineIndex, "", err.Error())
			emit(engine.IndexEvent{Type: engine.IndexFailed, Reason: err.Error()})
			return
		}

		if result.State == engine.IndexStatePaused {
			s.finish(PipelineIndex, fmt.Sprintf("paused at %d/%d", result.Sampled, result.Total), "")
			return
		}
		s.finish(PipelineIndex, fmt.Sprintf("indexed %d folders", result.Total), "")
	}()

	return ch
}

// StartSuggest launches a classification run over the stored source
// videos and returns its event stream. Precondition failures (nothing
// fetched, no credential, another run in flight) surface synchronously.
func (s *Session) StartSuggest(ctx context.Context) (<-chan engine.SuggestEvent, error) {
	if err := s.begin(PipelineSuggest); err != nil {
		return nil, err
	}

	abort := func(err error) (<-chan engine.SuggestEvent, error) {
		s.finish(PipelineSuggest, "", err.Error())
		return nil, err
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return abort(err)
	}
	videos, err := s.store.GetSourceVideos(ctx)
	if err != nil {
		return abort(err)
	}
	folders, err := s.store.GetFolders(ctx)
	if err != nil {
		return abort(err)
	}
	meta, err := s.store.GetSourceMeta(ctx)
	if err != nil {
		return abort(err)
	}
	existing, err := s.store.GetSuggestions(ctx)
	if err != nil {
		return abort(err)
	}

	classifier, err := s.newClassifier(settings)
	if err != nil {
		return abort(err)
	}
	sourceID := resolveSourceFolder(meta, settings, folders)

	ch := make(chan engine.SuggestEvent, s.cfg.EventBuffer)
	logger := s.logger.With("pipeline", PipelineSuggest, "run_id", uuid.NewString())

	go func() {
		defer close(ch)

		suggester := engine.NewSuggester(classifier, s.cfg.Suggester, logger)
		progress := func(completed, total int) {
			s.setProgress(PipelineSuggest, fmt.Sprintf("batch %d/%d", completed, total))
			select {
			case ch <- engine.SuggestEvent{Type: engine.SuggestProgress, Completed: completed, Total: total}:
			default:
			}
		}

		result, err := suggester.Classify(ctx, videos, folders, sourceID, settings, existing, progress)
		if err != nil {
			logger.Error("classification failed", "error", err)
			s.finish(PipelineSuggest, "", err.Error())
			select {
			case ch <- engine.SuggestEvent{Type: engine.SuggestFailed, Reason: err.Error()}:
			default:
			}
			return
		}

		if err := s.store.SaveSuggestions(ctx, result.Results); err != nil {
			logger.Error("failed to persist suggestions", "error", err)
			s.finish(PipelineSuggest, "", err.Error())
			select {
			case ch <- engine.SuggestEvent{Type: engine.SuggestFailed, Reason: err.Error()}:
			default:
			}
			return
		}

		s.finish(PipelineSuggest, fmt.Sprintf("%d videos classified", len(result.Results)), "")
		select {
		case ch <- engine.SuggestEvent{
			Type:        engine.SuggestCompleted,
			Results:     result.Results,
			FailedCount: result.FailedCount,
		}:
		default:
		}
	}()

	return ch, nil
}

// resolveSourceFolder picks the folder whose contents are being
// classified: the one the videos were fetched from when known, else the
// configured default, else the owner's first folder.
func resolveSourceFolder(meta *model.SourceMeta, settings model.Settings, folders []model.Folder) int64 {
	if meta != nil && meta.FolderID != 0 {
		return meta.FolderID
	}
	if settings.SourceFolderID != 0 {
		return settings.SourceFolderID
	}
	if len(folders) > 0 {
		return folders[0].ID
	}
	return 0
}
