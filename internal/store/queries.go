package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// AddAllowedLog allows path, keeping the original added_at when the path is
// already present. The note is replaced.
func (s *Store) AddAllowedLog(path, note string) error {
	query := `
		INSERT INTO allowed_logs (path, added_at, note)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET note = excluded.note
	`

	_, err := s.db.Exec(query, path, time.Now().UTC().Format(time.RFC3339), note)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to allow %s", path), err)
	}

	return nil
}

// RemoveAllowedLog removes path from the allow-list.
func (s *Store) RemoveAllowedLog(path string) error {
	query := `DELETE FROM allowed_logs WHERE path = ?`
	result, err := s.db.Exec(query, path)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to remove %s", path), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("path %s is not allowed", path)
	}

	return nil
}

// GetAllowedLog retrieves one allow-list entry.
func (s *Store) GetAllowedLog(path string) (*AllowedLog, error) {
	query := `
		SELECT path, added_at, COALESCE(note, '')
		FROM allowed_logs
		WHERE path = ?
	`

	var entry AllowedLog
	var addedAt string
	err := s.db.QueryRow(query, path).Scan(&entry.Path, &addedAt, &entry.Note)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("path %s is not allowed", path)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get %s", path), err)
	}

	entry.AddedAt, err = time.Parse(time.RFC3339, addedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse added_at for %s: %w", path, err)
	}

	return &entry, nil
}

// ListAllowedLogs returns every allow-list entry ordered by path.
func (s *Store) ListAllowedLogs() ([]*AllowedLog, error) {
	query := `
		SELECT path, added_at, COALESCE(note, '')
		FROM allowed_logs
		ORDER BY path
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapQueryErr("failed to list allowed logs", err)
	}
	defer rows.Close()

	var entries []*AllowedLog
	for rows.Next() {
		var entry AllowedLog
		var addedAt string

		if err := rows.Scan(&entry.Path, &addedAt, &entry.Note); err != nil {
			return nil, fmt.Errorf("failed to scan allowed log row: %w", err)
		}

		entry.AddedAt, err = time.Parse(time.RFC3339, addedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse added_at for %s: %w", entry.Path, err)
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allowed logs: %w", err)
	}

	return entries, nil
}

// IsAllowed reports whether path is on the allow-list.
func (s *Store) IsAllowed(path string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM allowed_logs WHERE path = ?`, path).Scan(&count)
	if err != nil {
		return false, wrapQueryErr(fmt.Sprintf("failed to check %s", path), err)
	}
	return count > 0, nil
}

// Contains reports whether path is allowed. A failed lookup is logged and
// treated as not allowed.
func (s *Store) Contains(path string) bool {
	ok, err := s.IsAllowed(path)
	if err != nil {
		s.logger.Error("allow-list lookup failed", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	return ok
}

// CountAllowedLogs returns the number of allow-list entries.
func (s *Store) CountAllowedLogs() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM allowed_logs`).Scan(&count); err != nil {
		return 0, wrapQueryErr("failed to count allowed logs", err)
	}
	return count, nil
}
