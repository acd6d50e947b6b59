// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"bilisort/internal/model"
)

// Storage defines the contract for the durable state store. Every value is
// read and replaced as a whole; there are no partial updates, so each
// persisted write is a complete, self-consistent snapshot.
type Storage interface {
	// Settings
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error

	// Folder index state
	GetFolders(ctx context.Context) ([]model.Folder, error)
	SaveFolders(ctx context.Context, folders []model.Folder) error
	GetFolderSamples(ctx context.Context) (map[string][]string, error)
	SaveFolderSamples(ctx context.Context, samples map[string][]string) error
	GetIndexTime(ctx context.Context) (time.Time, error)
	SaveIndexTime(ctx context.Context, t time.Time) error

	// Indexing checkpoint. Get returns (nil, nil) when no checkpoint exists.
	GetCheckpoint(ctx context.Context) (*model.FolderIndexCheckpoint, error)
	SaveCheckpoint(ctx context.Context, checkpoint *model.FolderIndexCheckpoint) error
	DeleteCheckpoint(ctx context.Context) error

	// Source folder state. GetSourceMeta returns (nil, nil) when absent.
	GetSourceVideos(ctx context.Context) ([]model.Video, error)
	SaveSourceVideos(ctx context.Context, videos []model.Video) error
	GetSourceMeta(ctx context.Context) (*model.SourceMeta, error)
	SaveSourceMeta(ctx context.Context, meta *model.SourceMeta) error

	// Classification accumulator
	GetSuggestions(ctx context.Context) (model.SuggestionSet, error)
	SaveSuggestions(ctx context.Context, suggestions model.SuggestionSet) error

	// ClearSource removes source videos, source meta, and all accumulated
	// suggestions in one transaction.
	ClearSource(ctx context.Context) error
	// ClearIndex removes every piece of pipeline state (folders, samples,
	// index time, checkpoint, source videos, source meta, suggestions).
	ClearIndex(ctx context.Context) error

	// Operation log, bounded to the most recent entries.
	AppendLogEntry(ctx context.Context, entry model.LogEntry) error
	GetLogEntries(ctx context.Context, limit int) ([]model.LogEntry, error)

	Close() error
}

// AuthInfo is the resolved owner identity.
type AuthInfo struct {
	UID      string
	Username string
	LoggedIn bool
}

// VideoWindow is the result of one bounded paginated fetch. NextPage points
// at the first page not yet fetched, so a later call resumes exactly there.
type VideoWindow struct {
	Videos   []model.Video
	Total    int
	NextPage int
	HasMore  bool
}

// CollectionClient is the stateless client for the remote folder/video
// collection service.
type CollectionClient interface {
	CheckAuth(ctx context.Context) (AuthInfo, error)
	FetchFolders(ctx context.Context, ownerID string) ([]model.Folder, error)
	FetchFolderSample(ctx context.Context, folderID int64, mediaCount int) ([]string, error)
	FetchVideos(ctx context.Context, folderID int64, startPage, maxPages int) (VideoWindow, error)
	MoveVideo(ctx context.Context, srcFolderID, dstFolderID int64, resourceID string) error
	SortFolders(ctx context.Context, folderIDs []int64) error
	RenameFolder(ctx context.Context, folderID int64, title string) error
}

// Classifier produces folder suggestions for a batch of videos against a
// target folder catalogue.
type Classifier interface {
	ClassifyBatch(ctx context.Context, videos []model.Video, folders []model.Folder) (model.SuggestionSet, error)
}

// RetryOptions configures retry behavior for operations. Backoff grows
// linearly: BackoffUnit × attempt number.
type RetryOptions struct {
	MaxAttempts int
	BackoffUnit time.Duration
}
