package store

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHub serves the tree, resolve and commit endpoints of a single dataset
// repository. Tree listings are paged pageSize entries at a time.
type fakeHub struct {
	mu       sync.Mutex
	token    string
	pageSize int
	files    map[string]string
	dirs     map[string]bool // folders that exist without files
	summary  []string
	commits  int
	server   *httptest.Server
}

func newFakeHub(t *testing.T, token string) *fakeHub {
	f := &fakeHub{token: token, pageSize: 100, files: make(map[string]string), dirs: make(map[string]bool)}
	f.server = httptest.NewServer(f)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
		http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	const (
		treePrefix    = "/api/datasets/acme/evals/tree/main"
		resolvePrefix = "/datasets/acme/evals/resolve/main/"
		commitPath    = "/api/datasets/acme/evals/commit/main"
	)

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, treePrefix):
		folder := strings.Trim(strings.TrimPrefix(r.URL.Path, treePrefix), "/")
		f.tree(w, r, folder)
	case (r.Method == http.MethodGet || r.Method == http.MethodHead) && strings.HasPrefix(r.URL.Path, resolvePrefix):
		content, ok := f.files[strings.TrimPrefix(r.URL.Path, resolvePrefix)]
		if !ok {
			http.Error(w, "Entry not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(content))
	case r.Method == http.MethodPost && r.URL.Path == commitPath:
		f.commit(w, r)
	default:
		http.Error(w, "Repository not found", http.StatusNotFound)
	}
}

func (f *fakeHub) tree(w http.ResponseWriter, r *http.Request, folder string) {
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	dirs := make(map[string]bool)
	var entries []treeEntry
	for name := range f.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		entries = append(entries, treeEntry{Type: "file", Path: name})
		for dir := name; strings.Contains(dir, "/"); {
			dir = dir[:strings.LastIndex(dir, "/")]
			if len(dir) > len(folder) && !dirs[dir] {
				dirs[dir] = true
				entries = append(entries, treeEntry{Type: "directory", Path: dir})
			}
		}
	}
	if len(entries) == 0 && !f.dirs[folder] {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	end := cursor + f.pageSize
	if end < len(entries) {
		next := fmt.Sprintf("%s%s?recursive=true&cursor=%d", f.server.URL, r.URL.Path, end)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
	} else {
		end = len(entries)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries[cursor:end])
}

func (f *fakeHub) commit(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/x-ndjson" {
		http.Error(w, "bad content type", http.StatusBadRequest)
		return
	}

	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		var line struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch line.Key {
		case "header":
			var header commitHeader
			json.Unmarshal(line.Value, &header)
			f.summary = append(f.summary, header.Summary)
		case "file":
			var file commitFile
			json.Unmarshal(line.Value, &file)
			content, err := base64.StdEncoding.DecodeString(file.Content)
			if err != nil || file.Encoding != "base64" {
				http.Error(w, "bad file encoding", http.StatusBadRequest)
				return
			}
			f.files[file.Path] = string(content)
		}
	}

	f.commits++
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"commitOid": fmt.Sprintf("oid-%d", f.commits),
		"commitUrl": fmt.Sprintf("%s/datasets/acme/evals/commit/oid-%d", f.server.URL, f.commits),
	})
}

func newHubTestStore(t *testing.T, fake *fakeHub, token string) *HuggingFaceStore {
	t.Helper()
	s, err := NewHuggingFaceStore(HuggingFaceOptions{
		Repo:     "acme/evals",
		RepoType: RepoTypeDataset,
		Token:    token,
		Endpoint: fake.server.URL,
	})
	require.NoError(t, err)
	return s
}

func TestHuggingFaceStore_ListFolder(t *testing.T) {
	fake := newFakeHub(t, "hf_secret")
	fake.files["results/a.json"] = `{"a": 1}`
	fake.files["results/deep/b.json"] = `{"b": 2}`
	fake.files["results/deep/c.json"] = `{"c": 3}`
	fake.files["README.md"] = "# evals"
	s := newHubTestStore(t, fake, "hf_secret")

	t.Run("lists files recursively with full paths", func(t *testing.T) {
		files, err := s.ListFolder(context.Background(), "results")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"results/a.json":      `{"a": 1}`,
			"results/deep/b.json": `{"b": 2}`,
			"results/deep/c.json": `{"c": 3}`,
		}, files)
	})

	t.Run("follows pagination links", func(t *testing.T) {
		fake.pageSize = 1
		defer func() { fake.pageSize = 100 }()

		files, err := s.ListFolder(context.Background(), "results")
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})

	t.Run("missing folder is not found", func(t *testing.T) {
		_, err := s.ListFolder(context.Background(), "missing")
		assert.True(t, IsNotFound(err))
	})

	t.Run("folder without files is not found", func(t *testing.T) {
		fake.dirs["empty"] = true

		_, err := s.ListFolder(context.Background(), "empty")
		assert.True(t, IsNotFound(err))
	})

	t.Run("wrong token is an auth error", func(t *testing.T) {
		bad := newHubTestStore(t, fake, "hf_wrong")
		_, err := bad.ListFolder(context.Background(), "results")
		assert.True(t, IsAuth(err))
	})
}

func TestHuggingFaceStore_ReadExistsWrite(t *testing.T) {
	fake := newFakeHub(t, "hf_secret")
	s := newHubTestStore(t, fake, "hf_secret")
	ctx := context.Background()

	exists, err := s.Exists(ctx, "results/run.json")
	require.NoError(t, err)
	assert.False(t, exists)

	result, err := s.WriteFile(ctx, "results/run.json", `{"v": 1}`, "")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "huggingface", result.Backend)
	assert.Equal(t, "oid-1", result.Revision)
	assert.Equal(t, "Update results/run.json", fake.summary[0])

	content, err := s.ReadFile(ctx, "results/run.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v": 1}`, content)

	result, err = s.WriteFile(ctx, "results/run.json", `{"v": 2}`, "rerun")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, "rerun", fake.summary[1])
	assert.Equal(t, `{"v": 2}`, fake.files["results/run.json"])

	_, err = s.ReadFile(ctx, "results/other.json")
	assert.True(t, IsNotFound(err))
}

func TestHuggingFaceStore_URLs(t *testing.T) {
	model, err := NewHuggingFaceStore(HuggingFaceOptions{Repo: "acme/net"})
	require.NoError(t, err)
	assert.Equal(t, "https://huggingface.co/acme/net/resolve/main/a%20b/c.json", model.resolveURL("a b/c.json"))
	assert.Equal(t, "https://huggingface.co/api/models/acme/net/tree/main/results?recursive=true", model.treeURL("results"))

	space, err := NewHuggingFaceStore(HuggingFaceOptions{Repo: "acme/demo", RepoType: RepoTypeSpace, Revision: "refs/pr/1"})
	require.NoError(t, err)
	assert.Equal(t, "https://huggingface.co/spaces/acme/demo/resolve/refs%2Fpr%2F1/x.json", space.resolveURL("x.json"))
	assert.Equal(t, "https://huggingface.co/api/spaces/acme/demo/commit/refs%2Fpr%2F1", space.commitURL())

	_, err = NewHuggingFaceStore(HuggingFaceOptions{Repo: "acme/x", RepoType: "notebook"})
	assert.Error(t, err)
}

func TestNextLink(t *testing.T) {
	assert.Equal(t, "https://hf.co/next?cursor=2", nextLink(`<https://hf.co/next?cursor=2>; rel="next"`))
	assert.Equal(t, "", nextLink(""))
	assert.Equal(t, "", nextLink(`<https://hf.co/prev>; rel="prev"`))
}
