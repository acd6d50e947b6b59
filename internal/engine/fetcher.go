package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// SourceFetcher loads the contents of the selected source folder one
// window of pages at a time. Whatever a window managed to fetch is
// persisted before any error is reported, so a rate-limited or
// interrupted fetch never loses pages it already paid for.
type SourceFetcher struct {
	store          service.Storage
	client         service.CollectionClient
	pagesPerWindow int
	logger         *slog.Logger
}

// DefaultPagesPerWindow is how many pages one fetch window covers.
const DefaultPagesPerWindow = 3

// NewSourceFetcher creates a source fetcher. pagesPerWindow <= 0 falls
// back to the default.
func NewSourceFetcher(store service.Storage, client service.CollectionClient, pagesPerWindow int, logger *slog.Logger) *SourceFetcher {
	if pagesPerWindow <= 0 {
		pagesPerWindow = DefaultPagesPerWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceFetcher{store: store, client: client, pagesPerWindow: pagesPerWindow, logger: logger}
}

// FetchWindow replaces the stored source state with the first window of
// the given folder. On a rate limit the partial window is persisted and
// the error returned, so the caller can retry from the saved cursor.
func (f *SourceFetcher) FetchWindow(ctx context.Context, folderID int64) ([]model.Video, *model.SourceMeta, error) {
	window, err := f.client.FetchVideos(ctx, folderID, 1, f.pagesPerWindow)
	if err != nil && !errors.Is(err, common.ErrRateLimited) {
		return nil, nil, err
	}

	meta := &model.SourceMeta{
		FolderID:      folderID,
		Total:         window.Total,
		NextPage:      window.NextPage,
		HasMore:       window.HasMore,
		LastFetchTime: time.Now().UTC(),
	}
	if perr := f.persist(ctx, window.Videos, meta); perr != nil {
		return nil, nil, perr
	}

	f.logger.Info("fetched source window",
		"folder_id", folderID,
		"videos", len(window.Videos),
		"total", meta.Total,
		"has_more", meta.HasMore)
	return window.Videos, meta, err
}

// LoadMore appends the next window to the stored source state. It
// returns ErrNothingToLoad when no cursor exists or the folder is
// exhausted.
func (f *SourceFetcher) LoadMore(ctx context.Context) ([]model.Video, *model.SourceMeta, error) {
	meta, err := f.store.GetSourceMeta(ctx)
	if err != nil {
		return nil, nil, err
	}
	if meta == nil || !meta.HasMore {
		return nil, nil, common.ErrNothingToLoad
	}

	existing, err := f.store.GetSourceVideos(ctx)
	if err != nil {
		return nil, nil, err
	}

	window, err := f.client.FetchVideos(ctx, meta.FolderID, meta.NextPage, f.pagesPerWindow)
	if err != nil && !errors.Is(err, common.ErrRateLimited) {
		return nil, nil, err
	}

	all := append(existing, window.Videos...)
	total := meta.Total
	if window.Total > 0 {
		total = window.Total
	}
	next := &model.SourceMeta{
		FolderID:      meta.FolderID,
		Total:         total,
		NextPage:      window.NextPage,
		HasMore:       window.HasMore,
		LastFetchTime: time.Now().UTC(),
	}
	if perr := f.persist(ctx, all, next); perr != nil {
		return nil, nil, perr
	}

	f.logger.Info("loaded more source videos",
		"folder_id", meta.FolderID,
		"added", len(window.Videos),
		"loaded", len(all),
		"total", next.Total,
		"has_more", next.HasMore)
	return all, next, err
}

// Refresh discards the stored source state, including every suggestion
// derived from it, and fetches the first window again.
func (f *SourceFetcher) Refresh(ctx context.Context, folderID int64) ([]model.Video, *model.SourceMeta, error) {
	if err := f.store.ClearSource(ctx); err != nil {
		return nil, nil, err
	}
	return f.FetchWindow(ctx, folderID)
}

func (f *SourceFetcher) persist(ctx context.Context, videos []model.Video, meta *model.SourceMeta) error {
	if videos == nil {
		videos = []model.Video{}
	}
	if err := f.store.SaveSourceVideos(ctx, videos); err != nil {
		return err
	}
	return f.store.SaveSourceMeta(ctx, meta)
}
