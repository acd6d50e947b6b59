package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/service"
	"bilisort/internal/testutil"
)

// pagedFolder scripts FetchVideos over a fixed 50-item folder with 20
// items per page, honoring startPage and maxPages like the real client.
func pagedFolder(total int) func(folderID int64, startPage, maxPages int) (service.VideoWindow, error) {
	const pageSize = 20
	return func(_ int64, startPage, maxPages int) (service.VideoWindow, error) {
		window := service.VideoWindow{Total: total, NextPage: startPage, HasMore: true}
		for p := startPage; p < startPage+maxPages; p++ {
			start := (p - 1) * pageSize
			if start >= total {
				window.HasMore = false
				break
			}
			end := start + pageSize
			if end > total {
				end = total
			}
			for i := start; i < end; i++ {
				window.Videos = append(window.Videos, model.Video{
					BVID:  fmt.Sprintf("BV%05d", i),
					Title: fmt.Sprintf("video %d", i),
				})
			}
			window.NextPage = p + 1
			window.HasMore = end < total
		}
		return window, nil
	}
}

func TestFetchWindowAndLoadMore(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &fakeClient{fetchFn: pagedFolder(70)}
	fetcher := NewSourceFetcher(store, client, 3, nil)
	ctx := context.Background()

	videos, meta, err := fetcher.FetchWindow(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, videos, 60)
	require.NotNil(t, meta)
	assert.Equal(t, int64(7), meta.FolderID)
	assert.Equal(t, 70, meta.Total)
	assert.Equal(t, 4, meta.NextPage)
	assert.True(t, meta.HasMore)

	videos, meta, err = fetcher.LoadMore(ctx)
	require.NoError(t, err)
	assert.Len(t, videos, 70)
	assert.False(t, meta.HasMore)

	// No duplicates across the window boundary.
	seen := make(map[string]bool, len(videos))
	for _, v := range videos {
		assert.False(t, seen[v.BVID], "duplicate %s", v.BVID)
		seen[v.BVID] = true
	}

	// The appended list was persisted.
	stored, err := store.GetSourceVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 70)

	_, _, err = fetcher.LoadMore(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToLoad)
}

func TestLoadMoreWithoutFetch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	fetcher := NewSourceFetcher(store, &fakeClient{}, 3, nil)

	_, _, err := fetcher.LoadMore(context.Background())
	assert.ErrorIs(t, err, common.ErrNothingToLoad)
}

func TestFetchWindowPersistsPartialOnRateLimit(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &fakeClient{
		fetchFn: func(_ int64, startPage, _ int) (service.VideoWindow, error) {
			// One page succeeded, the second was rate limited.
			return service.VideoWindow{
				Videos:   testutil.Videos(20),
				Total:    70,
				NextPage: startPage + 1,
				HasMore:  true,
			}, common.ErrRateLimited
		},
	}
	fetcher := NewSourceFetcher(store, client, 3, nil)
	ctx := context.Background()

	videos, meta, err := fetcher.FetchWindow(ctx, 7)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Len(t, videos, 20)
	require.NotNil(t, meta)
	assert.Equal(t, 2, meta.NextPage)

	// The partial window is already durable.
	stored, err := store.GetSourceVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 20)

	storedMeta, err := store.GetSourceMeta(ctx)
	require.NoError(t, err)
	require.NotNil(t, storedMeta)
	assert.Equal(t, 2, storedMeta.NextPage)
	assert.True(t, storedMeta.HasMore)
}

func TestRefreshDiscardsDerivedState(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSourceVideos(ctx, testutil.Videos(5)))
	require.NoError(t, store.SaveSourceMeta(ctx, &model.SourceMeta{FolderID: 7, NextPage: 2, HasMore: true}))
	require.NoError(t, store.SaveSuggestions(ctx, model.SuggestionSet{
		"BV0000001": {{FolderID: 2, FolderName: "music", Confidence: 0.9}},
	}))

	client := &fakeClient{fetchFn: pagedFolder(10)}
	fetcher := NewSourceFetcher(store, client, 3, nil)

	videos, meta, err := fetcher.Refresh(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, videos, 10)
	assert.False(t, meta.HasMore)

	// Suggestions were derived from the old list and went with it.
	suggestions, err := store.GetSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestFetchWindowTransportErrorPropagates(t *testing.T) {
	store := testutil.SetupTestDB(t)
	client := &fakeClient{
		fetchFn: func(int64, int, int) (service.VideoWindow, error) {
			return service.VideoWindow{}, context.DeadlineExceeded
		},
	}
	fetcher := NewSourceFetcher(store, client, 3, nil)

	_, _, err := fetcher.FetchWindow(context.Background(), 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Nothing was persisted for a window that produced nothing.
	meta, err := store.GetSourceMeta(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta)
}
