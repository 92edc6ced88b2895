// Package store persists evaluation files in a remote or local file store.
//
// Every backend implements Store: list a folder, read a file, check that a
// file exists, and write a file (overwrite if it exists, create otherwise).
// Paths are always slash-separated and relative to the store root, whatever
// the backend keeps underneath.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store is the capability every evaluation file backend provides.
type Store interface {
	// ListFolder returns path -> raw text for every file under folder,
	// recursively. Paths are relative to the store root. A missing folder or
	// one without files is a *NotFoundError.
	ListFolder(ctx context.Context, folder string) (map[string]string, error)

	// ReadFile returns the raw text of a single file.
	ReadFile(ctx context.Context, path string) (string, error)

	// Exists reports whether a file is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// WriteFile creates or replaces the file at path. An empty commitMessage
	// is replaced with DefaultCommitMessage(path).
	WriteFile(ctx context.Context, path, content, commitMessage string) (*WriteResult, error)
}

// WriteResult describes a completed write.
type WriteResult struct {
	Path     string `json:"path"`
	Created  bool   `json:"created"`            // false when an existing file was replaced
	Backend  string `json:"backend"`            // e.g. "github"
	Revision string `json:"revision,omitempty"` // Commit SHA or version, when the backend has one
}

// DefaultCommitMessage is the message used when a write is given none.
func DefaultCommitMessage(p string) string {
	return "Update " + p
}

func commitMessageOrDefault(message, p string) string {
	if message == "" {
		return DefaultCommitMessage(p)
	}
	return message
}

// cleanPath normalises a store path: slash-separated, no leading slash,
// no "." or ".." segments. The root folder is returned as "".
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", fmt.Errorf("path '%s' escapes the store root", p)
		}
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/"), nil
}

// cleanFilePath is cleanPath for paths that must name a file.
func cleanFilePath(p string) (string, error) {
	cleaned, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	if cleaned == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}
	return cleaned, nil
}

// NotFoundError reports a folder or file that does not exist in the store.
type NotFoundError struct {
	Backend string
	Path    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: '%s' not found", e.Backend, e.Path)
}

// AuthError reports credentials that the backend rejected or that are missing.
type AuthError struct {
	Backend string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Backend, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransportError reports a network or backend failure.
type TransportError struct {
	Backend string
	Op      string // e.g. "list", "read", "write"
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAuth returns true if err is or wraps an *AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsTransport returns true if err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}
