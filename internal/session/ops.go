package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bilisort/internal/common"
	"bilisort/internal/engine"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// CheckAuth resolves the authenticated remote identity.
func (s *Session) CheckAuth(ctx context.Context) (service.AuthInfo, error) {
	return s.client.CheckAuth(ctx)
}

// Settings returns the persisted settings.
func (s *Session) Settings(ctx context.Context) (model.Settings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings replaces the persisted settings.
func (s *Session) UpdateSettings(ctx context.Context, settings model.Settings) error {
	return s.store.SaveSettings(ctx, settings)
}

// Folders returns the indexed folder catalogue.
func (s *Session) Folders(ctx context.Context) ([]model.Folder, error) {
	return s.store.GetFolders(ctx)
}

// SourceState returns the stored source videos, their pagination
// cursor, and every accumulated suggestion.
func (s *Session) SourceState(ctx context.Context) ([]model.Video, *model.SourceMeta, model.SuggestionSet, error) {
	videos, err := s.store.GetSourceVideos(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	meta, err := s.store.GetSourceMeta(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	suggestions, err := s.store.GetSuggestions(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return videos, meta, suggestions, nil
}

// FetchSource replaces the stored source state with the first window of
// the given folder.
func (s *Session) FetchSource(ctx context.Context, folderID int64) ([]model.Video, *model.SourceMeta, error) {
	return s.fetcher().FetchWindow(ctx, folderID)
}

// RefreshSource discards the stored source state and suggestions, then
// fetches the first window of the given folder again.
func (s *Session) RefreshSource(ctx context.Context, folderID int64) ([]model.Video, *model.SourceMeta, error) {
	return s.fetcher().Refresh(ctx, folderID)
}

// LoadMoreSource appends the next window to the stored source state.
func (s *Session) LoadMoreSource(ctx context.Context) ([]model.Video, *model.SourceMeta, error) {
	return s.fetcher().LoadMore(ctx)
}

// MoveVideo moves a stored source video to another folder, records the
// move in the operation log, and drops the video's suggestion and its
// source-list entry so stale state never outlives the move.
func (s *Session) MoveVideo(ctx context.Context, srcFolderID, dstFolderID int64, bvid string) error {
	videos, err := s.store.GetSourceVideos(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, v := range videos {
		if v.BVID == bvid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: video %s not in source list", common.ErrNotFound, bvid)
	}
	video := videos[idx]

	folders, err := s.store.GetFolders(ctx)
	if err != nil {
		return err
	}

	resourceID := strconv.FormatInt(video.ResourceID, 10)
	if err := s.client.MoveVideo(ctx, srcFolderID, dstFolderID, resourceID); err != nil {
		return err
	}

	entry := model.LogEntry{
		Timestamp:      time.Now().UTC(),
		BVID:           bvid,
		VideoTitle:     video.Title,
		FromFolderName: folderName(folders, srcFolderID),
		ToFolderName:   folderName(folders, dstFolderID),
	}
	if err := s.store.AppendLogEntry(ctx, entry); err != nil {
		s.logger.Warn("move succeeded but log append failed", "bvid", bvid, "error", err)
	}

	remaining := append(videos[:idx:idx], videos[idx+1:]...)
	if err := s.store.SaveSourceVideos(ctx, remaining); err != nil {
		return err
	}
	return s.InvalidateSuggestion(ctx, bvid)
}

// SortFolders applies a new folder order remotely and mirrors it in the
// stored catalogue. Folders missing from the requested order keep their
// relative position at the end.
func (s *Session) SortFolders(ctx context.Context, folderIDs []int64) error {
	if err := s.client.SortFolders(ctx, folderIDs); err != nil {
		return err
	}

	folders, err := s.store.GetFolders(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	reordered := make([]model.Folder, 0, len(folders))
	seen := make(map[int64]bool, len(folderIDs))
	for _, id := range folderIDs {
		if f, ok := byID[id]; ok {
			reordered = append(reordered, f)
			seen[id] = true
		}
	}
	for _, f := range folders {
		if !seen[f.ID] {
			reordered = append(reordered, f)
		}
	}
	return s.store.SaveFolders(ctx, reordered)
}

// RenameFolder renames a folder remotely and in the stored catalogue.
func (s *Session) RenameFolder(ctx context.Context, folderID int64, title string) error {
	if err := s.client.RenameFolder(ctx, folderID, title); err != nil {
		return err
	}

	folders, err := s.store.GetFolders(ctx)
	if err != nil {
		return err
	}
	for i := range folders {
		if folders[i].ID == folderID {
			folders[i].Name = title
		}
	}
	return s.store.SaveFolders(ctx, folders)
}

// InvalidateSuggestion drops one video's cached suggestion so the next
// classification run recomputes it.
func (s *Session) InvalidateSuggestion(ctx context.Context, bvid string) error {
	suggestions, err := s.store.GetSuggestions(ctx)
	if err != nil {
		return err
	}
	if _, ok := suggestions[bvid]; !ok {
		return nil
	}
	delete(suggestions, bvid)
	return s.store.SaveSuggestions(ctx, suggestions)
}

// InvalidateAllSuggestions drops every cached suggestion.
func (s *Session) InvalidateAllSuggestions(ctx context.Context) error {
	return s.store.SaveSuggestions(ctx, model.SuggestionSet{})
}

// OperationLog returns the newest limit move records.
func (s *Session) OperationLog(ctx context.Context, limit int) ([]model.LogEntry, error) {
	return s.store.GetLogEntries(ctx, limit)
}

func (s *Session) fetcher() *engine.SourceFetcher {
	return engine.NewSourceFetcher(s.store, s.client, s.cfg.PagesPerWindow, s.logger)
}

func folderName(folders []model.Folder, id int64) string {
	for _, f := range folders {
		if f.ID == id {
			return f.Name
		}
	}
	return strconv.FormatInt(id, 10)
}
