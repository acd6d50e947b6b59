// Package session coordinates the pipelines and one-shot operations
// behind a single stateful facade. It serializes runs per pipeline,
// tracks transient per-pipeline status, and streams run events over
// buffered channels with best-effort delivery: a slow or departed
// consumer never stalls or cancels a run.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"bilisort/internal/common"
	"bilisort/internal/engine"
	"bilisort/internal/llm"
	"bilisort/internal/model"
	"bilisort/internal/service"
)

// Pipeline names used for status lookup and guard keys.
const (
	PipelineIndex   = "index"
	PipelineSuggest = "suggest"
)

// ClassifierFactory builds a provider classifier from the persisted
// settings. Injected so tests can substitute a scripted classifier.
type ClassifierFactory func(settings model.Settings) (service.Classifier, error)

// DefaultClassifierFactory builds the real provider classifier.
func DefaultClassifierFactory(logger *slog.Logger) ClassifierFactory {
	return func(settings model.Settings) (service.Classifier, error) {
		return llm.NewClassifier(llm.Config{
			Provider: string(settings.ActiveProvider()),
			APIKey:   settings.ActiveKey(),
			Model:    settings.ActiveModel(),
		}, logger)
	}
}

// Config holds the session tunables.
type Config struct {
	Indexer        engine.IndexerConfig
	Suggester      engine.SuggesterConfig
	PagesPerWindow int
	// EventBuffer is the capacity of each run's event channel.
	EventBuffer int
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		Indexer:        engine.DefaultIndexerConfig(),
		Suggester:      engine.DefaultSuggesterConfig(),
		PagesPerWindow: engine.DefaultPagesPerWindow,
		EventBuffer:    64,
	}
}

// Session is the orchestration facade. At most one run per pipeline is
// in flight at a time; a second start request is rejected rather than
// queued.
type Session struct {
	store         service.Storage
	client        service.CollectionClient
	newClassifier ClassifierFactory
	cfg           Config
	logger        *slog.Logger

	mu     sync.Mutex
	status map[string]*model.OperationStatus
}

// New creates a session.
func New(store service.Storage, client service.CollectionClient, factory ClassifierFactory, cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = DefaultClassifierFactory(logger)
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Session{
		store:         store,
		client:        client,
		newClassifier: factory,
		cfg:           cfg,
		logger:        logger,
		status: map[string]*model.OperationStatus{
			PipelineIndex:   {},
			PipelineSuggest: {},
		},
	}
}

// Status returns a copy of a pipeline's transient status.
func (s *Session) Status(pipeline string) model.OperationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[pipeline]; ok {
		return *st
	}
	return model.OperationStatus{}
}

// Statuses returns a copy of every pipeline status.
func (s *Session) Statuses() map[string]model.OperationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.OperationStatus, len(s.status))
	for name, st := range s.status {
		out[name] = *st
	}
	return out
}

// begin claims a pipeline's in-flight slot or rejects the start.
func (s *Session) begin(pipeline string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[pipeline]
	if st.InProgress {
		return fmt.Errorf("%w: %s", common.ErrOperationInProgress, pipeline)
	}
	st.InProgress = true
	st.Progress = ""
	st.LastError = ""
	return nil
}

// finish releases a pipeline's slot, recording a final progress line
// and the error that ended the run, if any.
func (s *Session) finish(pipeline, progress, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status[pipeline]
	st.InProgress = false
	st.Progress = progress
	st.LastError = lastError
}

func (s *Session) setProgress(pipeline, progress string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[pipeline].Progress = progress
}
