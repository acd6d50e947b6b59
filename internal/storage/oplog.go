package storage

import (
	"context"
	"fmt"

	"bilisort/internal/model"
)

// AppendLogEntry records a completed move and prunes the log to
// OperationLogCap entries, oldest dropped first.
func (s *SQLiteStore) AppendLogEntry(ctx context.Context, entry model.LogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO operation_log (timestamp, bvid, video_title, from_folder_name, to_folder_name)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC(), entry.BVID, entry.VideoTitle, entry.FromFolderName, entry.ToFolderName)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM operation_log WHERE id NOT IN (
			SELECT id FROM operation_log ORDER BY id DESC LIMIT ?
		)`, OperationLogCap)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prune log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entry: %w", err)
	}
	return nil
}

// GetLogEntries returns the most recent entries, newest first. A limit of 0
// or less returns up to OperationLogCap entries.
func (s *SQLiteStore) GetLogEntries(ctx context.Context, limit int) ([]model.LogEntry, error) {
	if limit <= 0 || limit > OperationLogCap {
		limit = OperationLogCap
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, bvid, video_title, from_folder_name, to_folder_name
		 FROM operation_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LogEntry
	for rows.Next() {
		var entry model.LogEntry
		if err := rows.Scan(&entry.Timestamp, &entry.BVID, &entry.VideoTitle,
			&entry.FromFolderName, &entry.ToFolderName); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("log rows iteration: %w", err)
	}
	return entries, nil
}
