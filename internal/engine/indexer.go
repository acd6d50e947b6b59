package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// IndexState is the terminal state of an indexing run that did not fail.
type IndexState string

const (
	// IndexStateCompleted means every folder was sampled and the
	// checkpoint was deleted.
	IndexStateCompleted IndexState = "completed"
	// IndexStatePaused means the run stopped on a rate limit after
	// persisting its progress. Calling Run again resumes it.
	IndexStatePaused IndexState = "paused"
)

// IndexResult summarizes a finished indexing run.
type IndexResult struct {
	State   IndexState
	Folders []model.Folder
	Sampled int
	Total   int
	Reason  string
}

// IndexerConfig holds the indexing tunables.
type IndexerConfig struct {
	// SamplingDelay is the pause between consecutive folder samples.
	SamplingDelay time.Duration
}

// DefaultIndexerConfig returns the production tunables.
func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{SamplingDelay: 500 * time.Millisecond}
}

// FolderIndexer builds the folder catalogue: it lists the owner's
// folders, samples a handful of titles from each non-empty one, and
// records progress in a checkpoint so an interrupted run resumes
// without re-sampling.
type FolderIndexer struct {
	store  service.Storage
	client service.CollectionClient
	cfg    IndexerConfig
	logger *slog.Logger
}

// NewFolderIndexer creates a folder indexer.
func NewFolderIndexer(store service.Storage, client service.CollectionClient, cfg IndexerConfig, logger *slog.Logger) *FolderIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderIndexer{store: store, client: client, cfg: cfg, logger: logger}
}

// Run executes one indexing pass. It emits a folders event as soon as
// the catalogue is known, a progress event per folder it samples, and a
// completed or paused event at the end; a failed run returns an error
// without a terminal event so the caller decides how to report it.
//
// Progress is persisted sample-first, checkpoint-second: a crash
// between the two writes re-samples one folder instead of losing one.
func (x *FolderIndexer) Run(ctx context.Context, emit IndexSink) (IndexResult, error) {
	send := func(ev IndexEvent) {
		if emit != nil {
			emit(ev)
		}
	}

	info, err := x.client.CheckAuth(ctx)
	if err != nil {
		return IndexResult{}, err
	}
	if !info.LoggedIn || info.UID == "" {
		return IndexResult{}, common.ErrSessionExpired
	}

	folders, err := x.client.FetchFolders(ctx, info.UID)
	if err != nil {
		return IndexResult{}, fmt.Errorf("failed to list folders: %w", err)
	}

	checkpoint, err := x.store.GetCheckpoint(ctx)
	if err != nil {
		return IndexResult{}, err
	}
	if checkpoint == nil || checkpoint.OwnerID != info.UID {
		if checkpoint != nil {
			x.logger.Info("checkpoint belongs to another identity, starting over",
				"checkpoint_owner", checkpoint.OwnerID,
				"owner", info.UID)
		}
		checkpoint = &model.FolderIndexCheckpoint{
			OwnerID:      info.UID,
			TotalFolders: len(folders),
			Timestamp:    time.Now().UTC(),
		}
		if err := x.store.SaveCheckpoint(ctx, checkpoint); err != nil {
			return IndexResult{}, err
		}
	}

	samples, err := x.store.GetFolderSamples(ctx)
	if err != nil {
		return IndexResult{}, err
	}
	if samples == nil {
		samples = make(map[string][]string)
	}
	for i := range folders {
		if cached, ok := samples[sampleKey(folders[i].ID)]; ok {
			folders[i].SampleTitles = cached
		}
	}

	send(IndexEvent{Type: IndexFolders, Folders: snapshotFolders(folders)})

	// Empty folders have nothing to sample; already-sampled ones are
	// covered by the checkpoint.
	var pending []*model.Folder
	for i := range folders {
		if folders[i].MediaCount > 0 && !checkpoint.Sampled(folders[i].ID) {
			pending = append(pending, &folders[i])
		}
	}

	x.logger.Info("indexing folders",
		"owner", info.UID,
		"total", len(folders),
		"pending", len(pending),
		"resumed", len(checkpoint.FoldersSampled) > 0)

	already := len(checkpoint.FoldersSampled)
	for i, folder := range pending {
		send(IndexEvent{
			Type:    IndexProgress,
			Sampled: already + i + 1,
			Total:   len(folders),
			Current: folder.Name,
		})

		titles, err := x.client.FetchFolderSample(ctx, folder.ID, folder.MediaCount)
		if err != nil {
			switch common.SamplingPolicy.Classify(err) {
			case common.ActionPause:
				if perr := x.persistProgress(ctx, samples, checkpoint); perr != nil {
					return IndexResult{}, perr
				}
				// Keep the partially-updated catalogue too, so folders
				// sampled in this run are visible before the resume.
				if perr := x.store.SaveFolders(ctx, folders); perr != nil {
					return IndexResult{}, perr
				}
				result := IndexResult{
					State:   IndexStatePaused,
					Folders: snapshotFolders(folders),
					Sampled: len(checkpoint.FoldersSampled),
					Total:   len(folders),
					Reason:  err.Error(),
				}
				x.logger.Warn("indexing paused on rate limit",
					"sampled", result.Sampled,
					"total", result.Total)
				send(IndexEvent{Type: IndexPaused, Sampled: result.Sampled, Total: result.Total, Reason: result.Reason})
				return result, nil
			case common.ActionFail:
				return IndexResult{}, err
			default:
				// Skipped folders stay out of the checkpoint so the
				// next run samples them again.
				x.logger.Warn("folder sample failed, skipping",
					"folder_id", folder.ID,
					"folder", folder.Name,
					"error", err)
				folder.SampleTitles = []string{}
				continue
			}
		}

		folder.SampleTitles = titles
		samples[sampleKey(folder.ID)] = titles
		checkpoint.MarkSampled(folder.ID)
		if err := x.persistProgress(ctx, samples, checkpoint); err != nil {
			return IndexResult{}, err
		}

		if i < len(pending)-1 {
			select {
			case <-ctx.Done():
				return IndexResult{}, ctx.Err()
			case <-time.After(x.cfg.SamplingDelay):
			}
		}
	}

	if err := x.store.SaveFolders(ctx, folders); err != nil {
		return IndexResult{}, err
	}
	if err := x.store.SaveIndexTime(ctx, time.Now().UTC()); err != nil {
		return IndexResult{}, err
	}
	if err := x.store.DeleteCheckpoint(ctx); err != nil {
		return IndexResult{}, err
	}

	result := IndexResult{
		State:   IndexStateCompleted,
		Folders: snapshotFolders(folders),
		Sampled: len(checkpoint.FoldersSampled),
		Total:   len(folders),
	}
	x.logger.Info("indexing completed", "folders", result.Total, "sampled", result.Sampled)
	send(IndexEvent{Type: IndexCompleted, Folders: result.Folders, Sampled: result.Sampled, Total: result.Total})
	return result, nil
}

func (x *FolderIndexer) persistProgress(ctx context.Context, samples map[string][]string, checkpoint *model.FolderIndexCheckpoint) error {
	if err := x.store.SaveFolderSamples(ctx, samples); err != nil {
		return err
	}
	return x.store.SaveCheckpoint(ctx, checkpoint)
}

func sampleKey(folderID int64) string {
	return strconv.FormatInt(folderID, 10)
}

func snapshotFolders(folders []model.Folder) []model.Folder {
	out := make([]model.Folder, len(folders))
	copy(out, folders)
	return out
}
