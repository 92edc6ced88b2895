package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"
)

// GitHubOptions configures a GitHubStore.
type GitHubOptions struct {
	Repo       string       // "owner/name"
	Branch     string       // Empty means the repository default branch
	Token      string       // Personal access token; empty for anonymous reads
	BaseURL    string       // API base URL; empty means api.github.com
	RateLimit  float64      // Requests per second; 0 disables throttling
	HTTPClient *http.Client // Optional; defaults to http.DefaultClient
}

// GitHubStore keeps evaluation files in a GitHub repository through the
// contents API. Every write is a commit.
type GitHubStore struct {
	client  *github.Client
	owner   string
	repo    string
	branch  string
	limiter *rate.Limiter
}

// NewGitHubStore creates a store for the repository named in opts.
func NewGitHubStore(opts GitHubOptions) (*GitHubStore, error) {
	owner, repo, err := splitRepo(opts.Repo)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL '%s': %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	return &GitHubStore{
		client:  client,
		owner:   owner,
		repo:    repo,
		branch:  opts.Branch,
		limiter: newLimiter(opts.RateLimit),
	}, nil
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in the form owner/name, got '%s'", repo)
	}
	return parts[0], parts[1], nil
}

func (s *GitHubStore) getOptions() *github.RepositoryContentGetOptions {
	if s.branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: s.branch}
}

func (s *GitHubStore) getContents(ctx context.Context, p string) (*github.RepositoryContent, []*github.RepositoryContent, error) {
	if err := wait(ctx, s.limiter); err != nil {
		return nil, nil, err
	}
	file, dir, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, p, s.getOptions())
	return file, dir, err
}

// ListFolder lists folder and all of its subdirectories, fetching the
// content of every file.
func (s *GitHubStore) ListFolder(ctx context.Context, folder string) (map[string]string, error) {
	cleaned, err := cleanPath(folder)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	if err := s.walk(ctx, cleaned, files); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &NotFoundError{Backend: "github", Path: cleaned}
	}
	return files, nil
}

func (s *GitHubStore) walk(ctx context.Context, dir string, files map[string]string) error {
	file, entries, err := s.getContents(ctx, dir)
	if err != nil {
		return s.classify("list", dir, err)
	}
	if file != nil {
		return &NotFoundError{Backend: "github", Path: dir}
	}

	for _, entry := range entries {
		switch entry.GetType() {
		case "dir":
			if err := s.walk(ctx, entry.GetPath(), files); err != nil {
				return err
			}
		case "file":
			content, err := s.ReadFile(ctx, entry.GetPath())
			if err != nil {
				return err
			}
			files[entry.GetPath()] = content
		}
	}
	return nil
}

// ReadFile fetches a single file. Files too large for the contents API are
// downloaded through their raw URL.
func (s *GitHubStore) ReadFile(ctx context.Context, p string) (string, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return "", err
	}

	file, _, err := s.getContents(ctx, cleaned)
	if err != nil {
		return "", s.classify("read", cleaned, err)
	}
	if file == nil {
		return "", &NotFoundError{Backend: "github", Path: cleaned}
	}

	if file.GetEncoding() == "none" {
		return s.download(ctx, cleaned)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", &TransportError{Backend: "github", Op: "read", Err: err}
	}
	return content, nil
}

func (s *GitHubStore) download(ctx context.Context, p string) (string, error) {
	if err := wait(ctx, s.limiter); err != nil {
		return "", err
	}
	rc, _, err := s.client.Repositories.DownloadContents(ctx, s.owner, s.repo, p, s.getOptions())
	if err != nil {
		return "", s.classify("read", p, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", &TransportError{Backend: "github", Op: "read", Err: err}
	}
	return string(data), nil
}

// Exists reports whether p names a file in the repository.
func (s *GitHubStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.sha(ctx, p)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// sha returns the blob SHA of an existing file, which the contents API
// requires to update it.
func (s *GitHubStore) sha(ctx context.Context, p string) (string, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return "", err
	}
	file, _, err := s.getContents(ctx, cleaned)
	if err != nil {
		return "", s.classify("read", cleaned, err)
	}
	if file == nil {
		return "", &NotFoundError{Backend: "github", Path: cleaned}
	}
	return file.GetSHA(), nil
}

// WriteFile updates the file if it exists and creates it otherwise, as a
// single commit on the configured branch.
func (s *GitHubStore) WriteFile(ctx context.Context, p, content, commitMessage string) (*WriteResult, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return nil, err
	}

	sha, err := s.sha(ctx, cleaned)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(commitMessageOrDefault(commitMessage, cleaned)),
		Content: []byte(content),
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}

	if err := wait(ctx, s.limiter); err != nil {
		return nil, err
	}

	var resp *github.RepositoryContentResponse
	created := sha == ""
	if created {
		resp, _, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, cleaned, opts)
	} else {
		opts.SHA = github.String(sha)
		resp, _, err = s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, cleaned, opts)
	}
	if err != nil {
		return nil, s.classify("write", cleaned, err)
	}

	return &WriteResult{
		Path:     cleaned,
		Created:  created,
		Backend:  "github",
		Revision: resp.Commit.GetSHA(),
	}, nil
}

// classify maps go-github errors onto the store error types.
func (s *GitHubStore) classify(op, p string, err error) error {
	if ctxErr := contextErr(err); ctxErr != nil {
		return ctxErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &TransportError{Backend: "github", Op: op, Err: err}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return &NotFoundError{Backend: "github", Path: p}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthError{Backend: "github", Err: err}
		}
	}

	return &TransportError{Backend: "github", Op: op, Err: err}
}
