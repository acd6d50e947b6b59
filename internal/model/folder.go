// Package model defines the core domain models used throughout the application.
package model

import "time"

// Folder is a named remote collection of videos owned by a user identity.
// SampleTitles carries a small random sample of the folder's contents used
// to give the classifier context about the folder's theme.
type Folder struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	MediaCount   int      `json:"media_count"`
	SampleTitles []string `json:"sample_titles"`
}

// FolderIndexCheckpoint records which folders have already been sampled so
// an interrupted indexing run resumes exactly where it left off. It is
// created when indexing starts for an owner and deleted only on full
// completion. Checkpoints are never shared across identities.
type FolderIndexCheckpoint struct {
	OwnerID        string    `json:"owner_id"`
	FoldersSampled []int64   `json:"folders_sampled"`
	TotalFolders   int       `json:"total_folders"`
	Timestamp      time.Time `json:"timestamp"`
}

// Sampled reports whether the given folder id is already recorded.
func (c *FolderIndexCheckpoint) Sampled(folderID int64) bool {
	for _, id := range c.FoldersSampled {
		if id == folderID {
			return true
		}
	}
	return false
}

// MarkSampled appends the folder id unless it is already recorded.
func (c *FolderIndexCheckpoint) MarkSampled(folderID int64) {
	if !c.Sampled(folderID) {
		c.FoldersSampled = append(c.FoldersSampled, folderID)
	}
}

// SourceMeta describes the pagination state of the currently selected
// source folder. It is replaced wholesale on every successful fetch window.
type SourceMeta struct {
	FolderID      int64     `json:"folder_id"`
	Total         int       `json:"total"`
	NextPage      int       `json:"next_page"`
	HasMore       bool      `json:"has_more"`
	LastFetchTime time.Time `json:"last_fetch_time"`
}
