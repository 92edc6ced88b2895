package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/evaldb/internal/config"
	"github.com/dyluth/evaldb/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T, mutate func(*config.EvalConfig)) *config.EvalConfig {
	t.Helper()
	cfg := &config.EvalConfig{Version: "1.0"}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpen_Local(t *testing.T) {
	root := t.TempDir()
	cfg := validConfig(t, func(c *config.EvalConfig) {
		c.Local = &config.LocalConfig{Root: root}
	})

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer Close(s)

	local, ok := s.(*store.LocalStore)
	require.True(t, ok)
	assert.Equal(t, root, local.Root())
}

func TestOpen_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "evals.db")
	cfg := validConfig(t, func(c *config.EvalConfig) {
		c.Backend = config.BackendSQLite
		c.SQLite = &config.SQLiteConfig{Path: dbPath}
	})

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer Close(s)

	_, err = s.WriteFile(context.Background(), "results/a.json", "{}", "")
	require.NoError(t, err)
	content, err := s.ReadFile(context.Background(), "results/a.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", content)
}

func TestOpen_Redis(t *testing.T) {
	t.Run("connects and uses namespace", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := validConfig(t, func(c *config.EvalConfig) {
			c.Backend = config.BackendRedis
			c.Redis = &config.RedisConfig{URL: "redis://" + mr.Addr(), Namespace: "team"}
		})

		s, err := Open(context.Background(), cfg)
		require.NoError(t, err)
		defer Close(s)

		_, err = s.WriteFile(context.Background(), "results/a.json", "{}", "")
		require.NoError(t, err)
		assert.True(t, mr.Exists(store.FileKey("team", "results/a.json")))
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := validConfig(t, func(c *config.EvalConfig) {
			c.Backend = config.BackendRedis
			c.Redis = &config.RedisConfig{URL: "redis://" + addr}
		})

		_, err := Open(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, store.IsTransport(err))
	})
}

func TestOpen_Remote(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "gh-token")

	gh := validConfig(t, func(c *config.EvalConfig) {
		c.Backend = config.BackendGitHub
		c.GitHub = &config.GitHubConfig{Repo: "acme/results"}
	})
	s, err := Open(context.Background(), gh)
	require.NoError(t, err)
	assert.IsType(t, &store.GitHubStore{}, s)

	hf := validConfig(t, func(c *config.EvalConfig) {
		c.Backend = config.BackendHuggingFace
		c.HuggingFace = &config.HuggingFaceConfig{Repo: "acme/evals"}
	})
	s, err = Open(context.Background(), hf)
	require.NoError(t, err)
	assert.IsType(t, &store.HuggingFaceStore{}, s)
	assert.NoError(t, Close(s))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.EvalConfig{Backend: "s3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend 's3'")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.EvalConfig)
		expected string
	}{
		{name: "local", expected: "local:."},
		{
			name: "github with branch",
			mutate: func(c *config.EvalConfig) {
				c.Backend = config.BackendGitHub
				c.GitHub = &config.GitHubConfig{Repo: "acme/results", Branch: "evals"}
			},
			expected: "github:acme/results@evals",
		},
		{
			name: "huggingface",
			mutate: func(c *config.EvalConfig) {
				c.Backend = config.BackendHuggingFace
				c.HuggingFace = &config.HuggingFaceConfig{Repo: "acme/evals"}
			},
			expected: "huggingface:dataset/acme/evals@main",
		},
		{
			name:     "redis",
			mutate:   func(c *config.EvalConfig) { c.Backend = config.BackendRedis },
			expected: "redis:default",
		},
		{
			name:     "sqlite",
			mutate:   func(c *config.EvalConfig) { c.Backend = config.BackendSQLite },
			expected: "sqlite:evaldb.sqlite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Describe(validConfig(t, tt.mutate)))
		})
	}
}
