// Package testutil provides shared test fixtures: an isolated on-disk
// state store and builders for the domain models tests keep constructing.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"bilisort/internal/model"
	"bilisort/internal/service"
	"bilisort/internal/storage"
)

// SetupTestDB creates an isolated state store under t.TempDir and
// registers its cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return store
}

// Folders builds n folders with ids 1..n and mediaCount videos each.
func Folders(n, mediaCount int) []model.Folder {
	folders := make([]model.Folder, 0, n)
	for i := 1; i <= n; i++ {
		folders = append(folders, model.Folder{
			ID:         int64(i),
			Name:       fmt.Sprintf("folder-%d", i),
			MediaCount: mediaCount,
		})
	}
	return folders
}

// Videos builds n valid videos with deterministic ids.
func Videos(n int) []model.Video {
	videos := make([]model.Video, 0, n)
	for i := 1; i <= n; i++ {
		videos = append(videos, model.Video{
			BVID:       fmt.Sprintf("BV%07d", i),
			ResourceID: int64(1000 + i),
			Title:      fmt.Sprintf("video %d", i),
			Attr:       model.AttrValid,
		})
	}
	return videos
}
