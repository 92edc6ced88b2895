package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultHuggingFaceEndpoint is the public Hub.
const DefaultHuggingFaceEndpoint = "https://huggingface.co"

// Hugging Face repository types.
const (
	RepoTypeModel   = "model"
	RepoTypeDataset = "dataset"
	RepoTypeSpace   = "space"
)

// HuggingFaceOptions configures a HuggingFaceStore.
type HuggingFaceOptions struct {
	Repo       string  // "owner/name"
	RepoType   string  // model, dataset or space; empty means model
	Revision   string  // Branch or commit; empty means main
	Token      string  // User access token; empty for anonymous reads
	Endpoint   string  // Hub URL; empty means DefaultHuggingFaceEndpoint
	RateLimit  float64 // Requests per second; 0 disables throttling
	HTTPClient *http.Client
}

// HuggingFaceStore keeps evaluation files in a Hugging Face Hub repository.
// Listing and commits go through the Hub JSON API, file content through
// the resolve endpoint.
type HuggingFaceStore struct {
	httpClient *http.Client
	endpoint   string
	repo       string
	repoType   string
	revision   string
	token      string
	limiter    *rate.Limiter
}

// NewHuggingFaceStore creates a store for the repository named in opts.
func NewHuggingFaceStore(opts HuggingFaceOptions) (*HuggingFaceStore, error) {
	if _, _, err := splitRepo(opts.Repo); err != nil {
		return nil, err
	}

	repoType := opts.RepoType
	if repoType == "" {
		repoType = RepoTypeModel
	}
	switch repoType {
	case RepoTypeModel, RepoTypeDataset, RepoTypeSpace:
	default:
		return nil, fmt.Errorf("invalid repo type '%s': must be model, dataset or space", repoType)
	}

	s := &HuggingFaceStore{
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		repo:       opts.Repo,
		repoType:   repoType,
		revision:   opts.Revision,
		token:      opts.Token,
		limiter:    newLimiter(opts.RateLimit),
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.endpoint == "" {
		s.endpoint = DefaultHuggingFaceEndpoint
	}
	if s.revision == "" {
		s.revision = "main"
	}
	return s, nil
}

// treeURL lists a folder: /api/{type}s/{repo}/tree/{revision}/{path}
func (s *HuggingFaceStore) treeURL(folder string) string {
	u := fmt.Sprintf("%s/api/%ss/%s/tree/%s", s.endpoint, s.repoType, s.repo, url.PathEscape(s.revision))
	if folder != "" {
		u += "/" + escapePath(folder)
	}
	return u + "?recursive=true"
}

// resolveURL serves raw content: /{prefix}{repo}/resolve/{revision}/{path}
// where prefix is "" for models, "datasets/" or "spaces/" otherwise.
func (s *HuggingFaceStore) resolveURL(p string) string {
	prefix := ""
	if s.repoType != RepoTypeModel {
		prefix = s.repoType + "s/"
	}
	return fmt.Sprintf("%s/%s%s/resolve/%s/%s", s.endpoint, prefix, s.repo, url.PathEscape(s.revision), escapePath(p))
}

// commitURL creates commits: /api/{type}s/{repo}/commit/{revision}
func (s *HuggingFaceStore) commitURL() string {
	return fmt.Sprintf("%s/api/%ss/%s/commit/%s", s.endpoint, s.repoType, s.repo, url.PathEscape(s.revision))
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func (s *HuggingFaceStore) do(ctx context.Context, method, u, contentType string, body io.Reader) (*http.Response, error) {
	if err := wait(ctx, s.limiter); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return s.httpClient.Do(req)
}

// check maps a non-2xx response onto the store error types and closes its body.
func (s *HuggingFaceStore) check(resp *http.Response, op, p string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(message)))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &NotFoundError{Backend: "huggingface", Path: p}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Backend: "huggingface", Err: err}
	}
	return &TransportError{Backend: "huggingface", Op: op, Err: err}
}

func (s *HuggingFaceStore) transportErr(op string, err error) error {
	if ctxErr := contextErr(err); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Backend: "huggingface", Op: op, Err: err}
}

type treeEntry struct {
	Type string `json:"type"` // "file" or "directory"
	Path string `json:"path"`
}

// ListFolder lists every file under folder and downloads its content.
func (s *HuggingFaceStore) ListFolder(ctx context.Context, folder string) (map[string]string, error) {
	cleaned, err := cleanPath(folder)
	if err != nil {
		return nil, err
	}

	paths, err := s.listTree(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &NotFoundError{Backend: "huggingface", Path: cleaned}
	}

	files := make(map[string]string, len(paths))
	for _, p := range paths {
		content, err := s.ReadFile(ctx, p)
		if err != nil {
			return nil, err
		}
		files[p] = content
	}
	return files, nil
}

// listTree follows the Link header across pages of the tree listing.
func (s *HuggingFaceStore) listTree(ctx context.Context, folder string) ([]string, error) {
	var paths []string
	next := s.treeURL(folder)

	for next != "" {
		resp, err := s.do(ctx, http.MethodGet, next, "", nil)
		if err != nil {
			return nil, s.transportErr("list", err)
		}
		if err := s.check(resp, "list", folder); err != nil {
			return nil, err
		}

		var entries []treeEntry
		err = json.NewDecoder(resp.Body).Decode(&entries)
		resp.Body.Close()
		if err != nil {
			return nil, &TransportError{Backend: "huggingface", Op: "list", Err: fmt.Errorf("failed to decode tree: %w", err)}
		}

		for _, entry := range entries {
			if entry.Type == "file" {
				paths = append(paths, entry.Path)
			}
		}
		next = nextLink(resp.Header.Get("Link"))
	}

	return paths, nil
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, link := range strings.Split(header, ",") {
		target, params, ok := strings.Cut(strings.TrimSpace(link), ";")
		if !ok || !strings.Contains(params, `rel="next"`) {
			continue
		}
		return strings.Trim(strings.TrimSpace(target), "<>")
	}
	return ""
}

// ReadFile downloads the raw content of a single file.
func (s *HuggingFaceStore) ReadFile(ctx context.Context, p string) (string, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return "", err
	}

	resp, err := s.do(ctx, http.MethodGet, s.resolveURL(cleaned), "", nil)
	if err != nil {
		return "", s.transportErr("read", err)
	}
	if err := s.check(resp, "read", cleaned); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", s.transportErr("read", err)
	}
	return string(data), nil
}

// Exists issues a HEAD request against the file's resolve URL.
func (s *HuggingFaceStore) Exists(ctx context.Context, p string) (bool, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return false, err
	}

	resp, err := s.do(ctx, http.MethodHead, s.resolveURL(cleaned), "", nil)
	if err != nil {
		return false, s.transportErr("stat", err)
	}
	if err := s.check(resp, "stat", cleaned); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

// WriteFile uploads content as a single-file commit. The Hub commit API
// replaces an existing file at the same path.
func (s *HuggingFaceStore) WriteFile(ctx context.Context, p, content, commitMessage string) (*WriteResult, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return nil, err
	}

	existed, err := s.Exists(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	lines := []commitLine{
		{Key: "header", Value: commitHeader{Summary: commitMessageOrDefault(commitMessage, cleaned)}},
		{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString([]byte(content)),
			Path:     cleaned,
			Encoding: "base64",
		}},
	}
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return nil, fmt.Errorf("failed to encode commit: %w", err)
		}
	}

	resp, err := s.do(ctx, http.MethodPost, s.commitURL(), "application/x-ndjson", &body)
	if err != nil {
		return nil, s.transportErr("write", err)
	}
	if err := s.check(resp, "write", cleaned); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var commit struct {
		CommitOid string `json:"commitOid"`
		CommitURL string `json:"commitUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commit); err != nil {
		return nil, &TransportError{Backend: "huggingface", Op: "write", Err: fmt.Errorf("failed to decode commit response: %w", err)}
	}

	return &WriteResult{
		Path:     cleaned,
		Created:  !existed,
		Backend:  "huggingface",
		Revision: commit.CommitOid,
	}, nil
}
