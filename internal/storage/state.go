package storage

import (
	"context"
	"time"

	"bilisort/internal/model"
)

// GetSettings returns the persisted settings, or the zero value if none
// have been saved yet.
func (s *SQLiteStore) GetSettings(ctx context.Context) (model.Settings, error) {
	var settings model.Settings
	_, err := s.getJSON(ctx, keySettings, &settings)
	return settings, err
}

// SaveSettings replaces the persisted settings.
func (s *SQLiteStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	return s.setJSON(ctx, keySettings, settings)
}

// GetFolders returns the persisted folder list.
func (s *SQLiteStore) GetFolders(ctx context.Context) ([]model.Folder, error) {
	var folders []model.Folder
	_, err := s.getJSON(ctx, keyFolders, &folders)
	return folders, err
}

// SaveFolders replaces the persisted folder list.
func (s *SQLiteStore) SaveFolders(ctx context.Context, folders []model.Folder) error {
	return s.setJSON(ctx, keyFolders, folders)
}

// GetFolderSamples returns the per-folder sample cache, keyed by folder id.
// The cache is independent of the checkpoint so samples survive a
// checkpoint reset.
func (s *SQLiteStore) GetFolderSamples(ctx context.Context) (map[string][]string, error) {
	samples := make(map[string][]string)
	_, err := s.getJSON(ctx, keyFolderSamples, &samples)
	return samples, err
}

// SaveFolderSamples replaces the sample cache.
func (s *SQLiteStore) SaveFolderSamples(ctx context.Context, samples map[string][]string) error {
	return s.setJSON(ctx, keyFolderSamples, samples)
}

// GetIndexTime returns when indexing last completed; zero if never.
func (s *SQLiteStore) GetIndexTime(ctx context.Context) (time.Time, error) {
	var t time.Time
	_, err := s.getJSON(ctx, keyIndexTime, &t)
	return t, err
}

// SaveIndexTime records the completion time of an indexing run.
func (s *SQLiteStore) SaveIndexTime(ctx context.Context, t time.Time) error {
	return s.setJSON(ctx, keyIndexTime, t)
}

// GetCheckpoint returns the indexing checkpoint, or (nil, nil) when no run
// is pending resumption.
func (s *SQLiteStore) GetCheckpoint(ctx context.Context) (*model.FolderIndexCheckpoint, error) {
	var checkpoint model.FolderIndexCheckpoint
	found, err := s.getJSON(ctx, keyCheckpoint, &checkpoint)
	if err != nil || !found {
		return nil, err
	}
	return &checkpoint, nil
}

// SaveCheckpoint replaces the indexing checkpoint.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, checkpoint *model.FolderIndexCheckpoint) error {
	return s.setJSON(ctx, keyCheckpoint, checkpoint)
}

// DeleteCheckpoint removes the checkpoint after a fully completed run.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context) error {
	return s.removeKeys(ctx, keyCheckpoint)
}

// GetSourceVideos returns the accumulated item list of the source folder.
func (s *SQLiteStore) GetSourceVideos(ctx context.Context) ([]model.Video, error) {
	var videos []model.Video
	_, err := s.getJSON(ctx, keySourceVideos, &videos)
	return videos, err
}

// SaveSourceVideos replaces the source item list.
func (s *SQLiteStore) SaveSourceVideos(ctx context.Context, videos []model.Video) error {
	return s.setJSON(ctx, keySourceVideos, videos)
}

// GetSourceMeta returns the source pagination cursor, or (nil, nil) when
// no source folder has been fetched.
func (s *SQLiteStore) GetSourceMeta(ctx context.Context) (*model.SourceMeta, error) {
	var meta model.SourceMeta
	found, err := s.getJSON(ctx, keySourceMeta, &meta)
	if err != nil || !found {
		return nil, err
	}
	return &meta, nil
}

// SaveSourceMeta replaces the source pagination cursor.
func (s *SQLiteStore) SaveSourceMeta(ctx context.Context, meta *model.SourceMeta) error {
	return s.setJSON(ctx, keySourceMeta, meta)
}

// GetSuggestions returns the classification accumulator; empty if none.
func (s *SQLiteStore) GetSuggestions(ctx context.Context) (model.SuggestionSet, error) {
	suggestions := make(model.SuggestionSet)
	_, err := s.getJSON(ctx, keySuggestions, &suggestions)
	return suggestions, err
}

// SaveSuggestions replaces the classification accumulator.
func (s *SQLiteStore) SaveSuggestions(ctx context.Context, suggestions model.SuggestionSet) error {
	return s.setJSON(ctx, keySuggestions, suggestions)
}

// ClearSource removes source videos, source meta, and all accumulated
// suggestions in one transaction. Suggestions go too because they are
// keyed to item identities that may now be stale.
func (s *SQLiteStore) ClearSource(ctx context.Context) error {
	return s.removeKeys(ctx, keySourceVideos, keySourceMeta, keySuggestions)
}

// ClearIndex removes every piece of pipeline state, leaving settings and
// the operation log intact. Used by force reindex.
func (s *SQLiteStore) ClearIndex(ctx context.Context) error {
	return s.removeKeys(ctx,
		keyFolders,
		keyFolderSamples,
		keyIndexTime,
		keyCheckpoint,
		keySourceVideos,
		keySourceMeta,
		keySuggestions,
	)
}
