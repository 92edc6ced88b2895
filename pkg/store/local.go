package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/evaldb/internal/git"
)

const tmpPrefix = ".evaldb-"

// LocalStore keeps evaluation files in a directory on disk.
type LocalStore struct {
	root      string
	gitCommit bool
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithGitCommit commits every written file to the Git repository containing
// the store root, using the write's commit message.
func WithGitCommit(enabled bool) LocalOption {
	return func(s *LocalStore) {
		s.gitCommit = enabled
	}
}

// NewLocalStore creates a store rooted at root. The directory is created on
// first write if it does not exist.
func NewLocalStore(root string, opts ...LocalOption) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store root: %w", err)
	}

	s := &LocalStore{root: abs}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute directory the store reads and writes.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) resolve(p string) (string, string, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// ListFolder walks folder recursively. The .git directory and in-flight
// temporary files are skipped. A folder without files is not found.
func (s *LocalStore) ListFolder(ctx context.Context, folder string) (map[string]string, error) {
	cleaned, dir, err := s.resolve(folder)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Backend: "local", Path: cleaned}
		}
		return nil, &TransportError{Backend: "local", Op: "list", Err: err}
	}
	if !info.IsDir() {
		return nil, &NotFoundError{Backend: "local", Path: cleaned}
	}

	files := make(map[string]string)
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Backend: "local", Op: "list", Err: err}
	}

	if len(files) == 0 {
		return nil, &NotFoundError{Backend: "local", Path: cleaned}
	}
	return files, nil
}

// ReadFile returns the content of a single file.
func (s *LocalStore) ReadFile(ctx context.Context, p string) (string, error) {
	cleaned, full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Backend: "local", Path: cleaned}
		}
		return "", &TransportError{Backend: "local", Op: "read", Err: err}
	}
	return string(content), nil
}

// Exists checks for a regular file at p.
func (s *LocalStore) Exists(ctx context.Context, p string) (bool, error) {
	_, full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &TransportError{Backend: "local", Op: "stat", Err: err}
	}
	return !info.IsDir(), nil
}

// WriteFile writes content atomically (temporary file then rename), creating
// parent directories as needed. With Git commits enabled the file is then
// committed with commitMessage.
//
// If the commit fails the file stays on disk: the WriteResult is returned
// together with the commit error.
func (s *LocalStore) WriteFile(ctx context.Context, p, content, commitMessage string) (*WriteResult, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(cleaned))

	existed, err := s.Exists(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(full, []byte(content)); err != nil {
		return nil, &TransportError{Backend: "local", Op: "write", Err: err}
	}

	result := &WriteResult{Path: cleaned, Created: !existed, Backend: "local"}

	if s.gitCommit {
		rev, err := s.commit(cleaned, commitMessageOrDefault(commitMessage, cleaned))
		if err != nil {
			return result, err
		}
		result.Revision = rev
	}

	return result, nil
}

func (s *LocalStore) commit(p, message string) (string, error) {
	checker := git.NewChecker(s.root)
	isRepo, err := checker.IsGitRepository()
	if err != nil {
		return "", err
	}
	if !isRepo {
		log.Printf("[LocalStore] %s is not inside a Git repository, skipping commit of %s", s.root, p)
		return "", nil
	}

	rev, err := checker.Commit(message, filepath.FromSlash(p))
	if err != nil {
		return "", fmt.Errorf("failed to commit %s: %w", p, err)
	}
	if rev != "" {
		log.Printf("[LocalStore] Committed %s (%s)", p, shortRev(rev))
	}
	return rev, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
