package main

import (
	"errors"
	"log/slog"
	"time"

	"bilisort/internal/bili"
	"bilisort/internal/common"
	"bilisort/internal/config"
	"bilisort/internal/engine"
	"bilisort/internal/service"
	"bilisort/internal/session"
	"bilisort/internal/storage"
)

// initStorage opens the state store at the configured path.
func initStorage(cfg config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStore(cfg.DatabasePath)
	if errors.Is(err, storage.ErrLocked) {
		return nil, common.NewUserError("another bilisort process is using the state store; close it and retry", err)
	}
	return store, err
}

// initClient builds the remote collection client from config.
func initClient(cfg config.Config) *bili.Client {
	return bili.NewClient(bili.Config{
		BaseURL:           cfg.BaseURL,
		Credentials:       cfg.Credentials,
		PageDelay:         cfg.PageDelay,
		RateLimitCooldown: cfg.RateLimitCooldown,
		Timeout:           30 * time.Second,
	})
}

// initSession wires storage, client, and pipeline tunables into a
// session. The returned cleanup closes the store.
func initSession() (*session.Session, func(), error) {
	cfg := config.Load()

	store, err := initStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	sess := session.New(store, initClient(cfg), nil, session.Config{
		Indexer: engine.IndexerConfig{SamplingDelay: cfg.SamplingDelay},
		Suggester: engine.SuggesterConfig{
			BatchSize:   cfg.BatchSize,
			MaxRetries:  cfg.BatchMaxRetries,
			BackoffUnit: cfg.BackoffUnit,
		},
		PagesPerWindow: cfg.PagesPerWindow,
		EventBuffer:    64,
	}, slog.Default())

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}
	return sess, cleanup, nil
}
