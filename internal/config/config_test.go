package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "evaldb.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
backend: github
folder: evals
github:
  repo: acme/results
  branch: main
  rate_limit: 2.5
reduce:
  strict: true
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, BackendGitHub, config.Backend)
	assert.Equal(t, "evals", config.Folder)
	assert.Equal(t, "acme/results", config.GitHub.Repo)
	assert.Equal(t, "main", config.GitHub.Branch)
	assert.Equal(t, 2.5, config.GitHub.RateLimit)
	assert.Equal(t, "GITHUB_TOKEN", config.GitHub.TokenEnv)
	assert.True(t, config.Reduce.Strict)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, config.Backend)
	assert.Equal(t, "results", config.Folder)
	assert.Equal(t, ".", config.Local.Root)
	assert.False(t, config.Local.GitCommit)
	assert.Equal(t, "dataset", config.HuggingFace.RepoType)
	assert.Equal(t, "main", config.HuggingFace.Revision)
	assert.Equal(t, "HF_TOKEN", config.HuggingFace.TokenEnv)
	assert.Equal(t, "https://huggingface.co", config.HuggingFace.Endpoint)
	assert.Equal(t, "redis://localhost:6379/0", config.Redis.URL)
	assert.Equal(t, "default", config.Redis.Namespace)
	assert.Equal(t, "evaldb.sqlite", config.SQLite.Path)
	assert.False(t, config.Reduce.Strict)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/evaldb.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
github:
  - this is invalid
    yaml syntax
`))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported version",
			content: `version: "2.0"`,
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "unknown backend",
			content: "version: \"1.0\"\nbackend: s3\n",
			wantErr: "invalid backend: s3",
		},
		{
			name:    "github without repo",
			content: "version: \"1.0\"\nbackend: github\n",
			wantErr: "github.repo is required",
		},
		{
			name:    "malformed huggingface repo",
			content: "version: \"1.0\"\nbackend: huggingface\nhuggingface:\n  repo: just-a-name\n",
			wantErr: "invalid huggingface.repo",
		},
		{
			name:    "bad huggingface repo type",
			content: "version: \"1.0\"\nbackend: huggingface\nhuggingface:\n  repo: acme/x\n  repo_type: notebook\n",
			wantErr: "invalid huggingface.repo_type",
		},
		{
			name:    "bad redis url",
			content: "version: \"1.0\"\nbackend: redis\nredis:\n  url: localhost:6379\n",
			wantErr: "invalid redis.url",
		},
		{
			name:    "negative rate limit",
			content: "version: \"1.0\"\ngithub:\n  rate_limit: -1\n",
			wantErr: "github.rate_limit must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_UnselectedBackendsNotRequired(t *testing.T) {
	// A missing github.repo only matters when github is the backend
	config, err := Load(writeConfig(t, "version: \"1.0\"\nbackend: sqlite\nsqlite:\n  path: data/evals.db\n"))
	require.NoError(t, err)
	assert.Equal(t, "data/evals.db", config.SQLite.Path)
}

func TestDefault(t *testing.T) {
	config := Default()
	assert.Equal(t, BackendLocal, config.Backend)
	assert.Equal(t, "results", config.Folder)
	assert.NotNil(t, config.Reduce)
}

func TestTokens(t *testing.T) {
	t.Setenv("EVALDB_TEST_GH", "gh-token")
	t.Setenv("HF_TOKEN", "hf-token")

	config, err := Load(writeConfig(t, `version: "1.0"
github:
  token_env: EVALDB_TEST_GH
`))
	require.NoError(t, err)

	assert.Equal(t, "gh-token", config.GitHub.Token())
	assert.Equal(t, "hf-token", config.HuggingFace.Token())
}
