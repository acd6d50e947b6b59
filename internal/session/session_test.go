package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilisort/internal/common"
	"bilisort/internal/engine"
	"bilisort/internal/model"
	"bilisort/internal/service"
	"bilisort/internal/testutil"
)

type stubClient struct {
	mu sync.Mutex

	auth    service.AuthInfo
	folders []model.Folder

	sampleGate chan struct{} // when set, FetchFolderSample blocks on it

	moves   []string
	renames map[int64]string
	sorted  []int64
}

func newStubClient(folderCount int) *stubClient {
	return &stubClient{
		auth:    service.AuthInfo{UID: "12345", Username: "tester", LoggedIn: true},
		folders: testutil.Folders(folderCount, 10),
		renames: make(map[int64]string),
	}
}

func (c *stubClient) CheckAuth(context.Context) (service.AuthInfo, error) {
	return c.auth, nil
}

func (c *stubClient) FetchFolders(context.Context, string) ([]model.Folder, error) {
	out := make([]model.Folder, len(c.folders))
	copy(out, c.folders)
	return out, nil
}

func (c *stubClient) FetchFolderSample(ctx context.Context, folderID int64, _ int) ([]string, error) {
	if c.sampleGate != nil {
		select {
		case <-c.sampleGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []string{"sample"}, nil
}

func (c *stubClient) FetchVideos(_ context.Context, _ int64, startPage, _ int) (service.VideoWindow, error) {
	return service.VideoWindow{
		Videos:   testutil.Videos(5),
		Total:    5,
		NextPage: startPage + 1,
		HasMore:  false,
	}, nil
}

func (c *stubClient) MoveVideo(_ context.Context, _, _ int64, resourceID string) error {
	c.mu.Lock()
	c.moves = append(c.moves, resourceID)
	c.mu.Unlock()
	return nil
}

func (c *stubClient) SortFolders(_ context.Context, ids []int64) error {
	c.mu.Lock()
	c.sorted = ids
	c.mu.Unlock()
	return nil
}

func (c *stubClient) RenameFolder(_ context.Context, id int64, title string) error {
	c.mu.Lock()
	c.renames[id] = title
	c.mu.Unlock()
	return nil
}

type stubClassifier struct{}

func (stubClassifier) ClassifyBatch(_ context.Context, videos []model.Video, folders []model.Folder) (model.SuggestionSet, error) {
	set := make(model.SuggestionSet, len(videos))
	for _, v := range videos {
		set[v.BVID] = []model.Suggestion{{FolderID: folders[0].ID, FolderName: folders[0].Name, Confidence: 0.8}}
	}
	return set, nil
}

func testConfig() Config {
	return Config{
		Indexer:        engine.IndexerConfig{SamplingDelay: time.Millisecond},
		Suggester:      engine.SuggesterConfig{BatchSize: 10, MaxRetries: 1, BackoffUnit: time.Millisecond},
		PagesPerWindow: 3,
		EventBuffer:    256,
	}
}

func newTestSession(t *testing.T, client service.CollectionClient) (*Session, service.Storage) {
	t.Helper()
	store := testutil.SetupTestDB(t)
	sess := New(store, client, func(model.Settings) (service.Classifier, error) {
		return stubClassifier{}, nil
	}, testConfig(), nil)
	return sess, store
}

func drainIndex(t *testing.T, events <-chan engine.IndexEvent) []engine.IndexEvent {
	t.Helper()
	var out []engine.IndexEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestConcurrentIndexRejected(t *testing.T) {
	client := newStubClient(2)
	client.sampleGate = make(chan struct{})
	sess, _ := newTestSession(t, client)

	events, err := sess.StartIndex(context.Background())
	require.NoError(t, err)

	_, err = sess.StartIndex(context.Background())
	assert.ErrorIs(t, err, common.ErrOperationInProgress)
	assert.True(t, sess.Status(PipelineIndex).InProgress)

	close(client.sampleGate)
	drainIndex(t, events)

	// The slot frees up once the run ends.
	assert.False(t, sess.Status(PipelineIndex).InProgress)
	events, err = sess.StartIndex(context.Background())
	require.NoError(t, err)
	drainIndex(t, events)
}

func TestIndexRunPersistsCatalogue(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(3))

	events, err := sess.StartIndex(context.Background())
	require.NoError(t, err)
	got := drainIndex(t, events)

	require.NotEmpty(t, got)
	assert.Equal(t, engine.IndexCompleted, got[len(got)-1].Type)

	folders, err := store.GetFolders(context.Background())
	require.NoError(t, err)
	assert.Len(t, folders, 3)
	assert.Equal(t, []string{"sample"}, folders[0].SampleTitles)
}

func TestForceReindexClearsDerivedState(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(2))
	ctx := context.Background()

	require.NoError(t, store.SaveSourceVideos(ctx, testutil.Videos(3)))
	require.NoError(t, store.SaveSourceMeta(ctx, &model.SourceMeta{FolderID: 1, HasMore: true}))
	require.NoError(t, store.SaveSuggestions(ctx, model.SuggestionSet{"BV0000001": {}}))

	events, err := sess.ForceReindex(ctx)
	require.NoError(t, err)
	drainIndex(t, events)

	meta, err := store.GetSourceMeta(ctx)
	require.NoError(t, err)
	assert.Nil(t, meta)

	suggestions, err := store.GetSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	// The fresh catalogue replaced the old one.
	folders, err := store.GetFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 2)
}

func TestStartSuggestPersistsResults(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(3))
	ctx := context.Background()

	require.NoError(t, store.SaveSettings(ctx, model.Settings{GeminiAPIKey: "key"}))
	require.NoError(t, store.SaveFolders(ctx, testutil.Folders(3, 10)))
	require.NoError(t, store.SaveSourceVideos(ctx, testutil.Videos(12)))
	require.NoError(t, store.SaveSourceMeta(ctx, &model.SourceMeta{FolderID: 1, Total: 12}))

	events, err := sess.StartSuggest(ctx)
	require.NoError(t, err)

	var last engine.SuggestEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, engine.SuggestCompleted, last.Type)
	assert.Len(t, last.Results, 12)
	assert.Zero(t, last.FailedCount)

	suggestions, err := store.GetSuggestions(ctx)
	require.NoError(t, err)
	assert.Len(t, suggestions, 12)

	assert.False(t, sess.Status(PipelineSuggest).InProgress)
}

func TestStartSuggestNothingFetched(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(3))
	ctx := context.Background()

	require.NoError(t, store.SaveSettings(ctx, model.Settings{GeminiAPIKey: "key"}))
	require.NoError(t, store.SaveFolders(ctx, testutil.Folders(3, 10)))

	events, err := sess.StartSuggest(ctx)
	require.NoError(t, err)
	var last engine.SuggestEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, engine.SuggestFailed, last.Type)

	// The guard is released so a retry is possible.
	assert.False(t, sess.Status(PipelineSuggest).InProgress)
	assert.NotEmpty(t, sess.Status(PipelineSuggest).LastError)
}

func TestMoveVideoSideEffects(t *testing.T) {
	client := newStubClient(3)
	sess, store := newTestSession(t, client)
	ctx := context.Background()

	videos := testutil.Videos(3)
	require.NoError(t, store.SaveFolders(ctx, testutil.Folders(3, 10)))
	require.NoError(t, store.SaveSourceVideos(ctx, videos))
	require.NoError(t, store.SaveSuggestions(ctx, model.SuggestionSet{
		videos[0].BVID: {{FolderID: 2, FolderName: "folder-2", Confidence: 0.9}},
		videos[1].BVID: {{FolderID: 3, FolderName: "folder-3", Confidence: 0.8}},
	}))

	require.NoError(t, sess.MoveVideo(ctx, 1, 2, videos[0].BVID))

	// The remote move used the numeric resource id.
	assert.Equal(t, []string{"1001"}, client.moves)

	// The move is in the log with resolved folder names.
	entries, err := store.GetLogEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, videos[0].BVID, entries[0].BVID)
	assert.Equal(t, "folder-1", entries[0].FromFolderName)
	assert.Equal(t, "folder-2", entries[0].ToFolderName)

	// The moved video left the source list and lost its suggestion.
	remaining, err := store.GetSourceVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	suggestions, err := store.GetSuggestions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, suggestions, videos[0].BVID)
	assert.Contains(t, suggestions, videos[1].BVID)
}

func TestMoveVideoUnknownItem(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(2))
	ctx := context.Background()
	require.NoError(t, store.SaveSourceVideos(ctx, testutil.Videos(1)))

	err := sess.MoveVideo(ctx, 1, 2, "BVmissing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSortAndRenameMirrorRemoteChanges(t *testing.T) {
	client := newStubClient(3)
	sess, store := newTestSession(t, client)
	ctx := context.Background()

	require.NoError(t, store.SaveFolders(ctx, testutil.Folders(3, 10)))

	require.NoError(t, sess.SortFolders(ctx, []int64{3, 1, 2}))
	folders, err := store.GetFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, []int64{folders[0].ID, folders[1].ID, folders[2].ID})

	require.NoError(t, sess.RenameFolder(ctx, 2, "watched"))
	folders, err = store.GetFolders(ctx)
	require.NoError(t, err)
	for _, f := range folders {
		if f.ID == 2 {
			assert.Equal(t, "watched", f.Name)
		}
	}
	assert.Equal(t, "watched", client.renames[2])
}

func TestFetchAndLoadMoreSource(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(2))
	ctx := context.Background()

	videos, meta, err := sess.FetchSource(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, videos, 5)
	require.NotNil(t, meta)
	assert.False(t, meta.HasMore)

	_, _, err = sess.LoadMoreSource(ctx)
	assert.ErrorIs(t, err, common.ErrNothingToLoad)

	stored, err := store.GetSourceVideos(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestInvalidateAllSuggestions(t *testing.T) {
	sess, store := newTestSession(t, newStubClient(2))
	ctx := context.Background()

	require.NoError(t, store.SaveSuggestions(ctx, model.SuggestionSet{"BV1": {}, "BV2": {}}))
	require.NoError(t, sess.InvalidateAllSuggestions(ctx))

	suggestions, err := store.GetSuggestions(ctx)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}
