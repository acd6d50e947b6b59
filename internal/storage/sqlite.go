// Package storage implements the durable state store on SQLite.
//
// Pipeline state is persisted as whole-key JSON snapshots in a single kv
// table: every write replaces the full value for its key, so a crash
// between two related writes leaves each key individually consistent and
// re-running a pipeline is always safe.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Logical state keys.
const (
	keySettings      = "settings"
	keyFolders       = "folders"
	keyFolderSamples = "folder_samples"
	keyIndexTime     = "folder_index_time"
	keyCheckpoint    = "folder_checkpoint"
	keySourceVideos  = "source_videos"
	keySourceMeta    = "source_meta"
	keySuggestions   = "suggestions"
)

// OperationLogCap bounds the operation log; the oldest entries are dropped
// first once it is exceeded.
const OperationLogCap = 1000

// ErrLocked indicates another process holds the store's lock file.
var ErrLocked = errors.New("state store is locked by another process")

// SQLiteStore implements the service.Storage interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	lock   *flock.Flock
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the state database at dbPath
// and takes an advisory lock beside it so two processes cannot interleave
// whole-key writes.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath must not be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, lock: lock, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS operation_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME NOT NULL,
			bvid TEXT NOT NULL,
			video_title TEXT NOT NULL,
			from_folder_name TEXT NOT NULL,
			to_folder_name TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// Close releases the database and the advisory lock.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

// getJSON reads and unmarshals a whole key. Returns false when the key is
// absent.
func (s *SQLiteStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	return true, nil
}

// setJSON replaces a whole key with the JSON encoding of v.
func (s *SQLiteStore) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) removeKeys(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to remove key %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}
