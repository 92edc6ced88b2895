package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	"path" TEXT PRIMARY KEY,
	"content" TEXT NOT NULL,
	"message" TEXT NOT NULL,
	"version" INTEGER NOT NULL DEFAULT 1,
	"updated_at" DATETIME NOT NULL
);`

// SQLiteStore keeps evaluation files in a single SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// files table exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createFilesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create files table: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) transportErr(op string, err error) error {
	if ctxErr := contextErr(err); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Backend: "sqlite", Op: op, Err: err}
}

// ListFolder selects every file whose path lies under folder.
func (s *SQLiteStore) ListFolder(ctx context.Context, folder string) (map[string]string, error) {
	cleaned, err := cleanPath(folder)
	if err != nil {
		return nil, err
	}

	query := `SELECT path, content FROM files`
	var args []any
	if cleaned != "" {
		query += ` WHERE instr(path, ?) = 1`
		args = append(args, cleaned+"/")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.transportErr("list", err)
	}
	defer rows.Close()

	files := make(map[string]string)
	for rows.Next() {
		var p, content string
		if err := rows.Scan(&p, &content); err != nil {
			return nil, s.transportErr("list", err)
		}
		files[p] = content
	}
	if err := rows.Err(); err != nil {
		return nil, s.transportErr("list", err)
	}

	if len(files) == 0 {
		return nil, &NotFoundError{Backend: "sqlite", Path: cleaned}
	}
	return files, nil
}

// ReadFile returns the content of a single file.
func (s *SQLiteStore) ReadFile(ctx context.Context, p string) (string, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return "", err
	}

	var content string
	err = s.db.QueryRowContext(ctx, `SELECT content FROM files WHERE path = ?`, cleaned).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &NotFoundError{Backend: "sqlite", Path: cleaned}
		}
		return "", s.transportErr("read", err)
	}
	return content, nil
}

// Exists checks for a row with the given path.
func (s *SQLiteStore) Exists(ctx context.Context, p string) (bool, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return false, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE path = ?`, cleaned).Scan(&n); err != nil {
		return false, s.transportErr("stat", err)
	}
	return n > 0, nil
}

// WriteFile inserts or replaces the row for p and bumps its version inside
// one transaction. The revision is the new version number.
func (s *SQLiteStore) WriteFile(ctx context.Context, p, content, commitMessage string) (*WriteResult, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return nil, err
	}
	message := commitMessageOrDefault(commitMessage, cleaned)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, s.transportErr("write", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM files WHERE path = ?`, cleaned).Scan(&version)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return nil, s.transportErr("write", err)
	}
	version++

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, content, message, version, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			message = excluded.message,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		cleaned, content, message, version, s.now().UTC())
	if err != nil {
		return nil, s.transportErr("write", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, s.transportErr("write", err)
	}

	return &WriteResult{
		Path:     cleaned,
		Created:  created,
		Backend:  "sqlite",
		Revision: strconv.FormatInt(version, 10),
	}, nil
}
