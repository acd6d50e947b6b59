// Package engine implements the three background pipelines: folder
// indexing with checkpointed resume, windowed source fetching with
// partial-progress persistence, and batched classification.
package engine

import (
	"bilisort/internal/model"
)

// IndexEventType identifies a stage of an indexing run.
type IndexEventType string

// Indexing run events, in the order a consumer can expect them: one
// folders event, zero or more progress events, then exactly one of
// completed, paused, or failed.
const (
	IndexFolders   IndexEventType = "folders"
	IndexProgress  IndexEventType = "progress"
	IndexCompleted IndexEventType = "completed"
	IndexPaused    IndexEventType = "paused"
	IndexFailed    IndexEventType = "failed"
)

// IndexEvent is one observation of an indexing run. Delivery is
// best-effort: a consumer that falls behind misses events, the run
// itself is never blocked or cancelled by it.
type IndexEvent struct {
	Type    IndexEventType
	Folders []model.Folder
	Sampled int
	Total   int
	Current string
	Reason  string
}

// IndexSink receives indexing events. It must not block.
type IndexSink func(IndexEvent)

// SuggestEventType identifies a stage of a classification run.
type SuggestEventType string

// Classification run events.
const (
	SuggestProgress  SuggestEventType = "progress"
	SuggestCompleted SuggestEventType = "completed"
	SuggestFailed    SuggestEventType = "failed"
)

// SuggestEvent is one observation of a classification run. Completed
// and Total count batches, not items.
type SuggestEvent struct {
	Type        SuggestEventType
	Completed   int
	Total       int
	Results     model.SuggestionSet
	FailedCount int
	Reason      string
}

// SuggestSink receives classification events. It must not block.
type SuggestSink func(SuggestEvent)
