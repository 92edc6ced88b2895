package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file evaldb looks for in the working directory.
const DefaultPath = "evaldb.yml"

// Backend names accepted in evaldb.yml and by --backend.
const (
	BackendLocal       = "local"
	BackendGitHub      = "github"
	BackendHuggingFace = "huggingface"
	BackendRedis       = "redis"
	BackendSQLite      = "sqlite"
)

// Backends lists every supported backend in display order.
var Backends = []string{BackendLocal, BackendGitHub, BackendHuggingFace, BackendRedis, BackendSQLite}

// EvalConfig represents the top-level evaldb.yml configuration
type EvalConfig struct {
	Version     string             `yaml:"version"`
	Backend     string             `yaml:"backend"`
	Folder      string             `yaml:"folder"` // Results folder used when a command is given none
	Local       *LocalConfig       `yaml:"local,omitempty"`
	GitHub      *GitHubConfig      `yaml:"github,omitempty"`
	HuggingFace *HuggingFaceConfig `yaml:"huggingface,omitempty"`
	Redis       *RedisConfig       `yaml:"redis,omitempty"`
	SQLite      *SQLiteConfig      `yaml:"sqlite,omitempty"`
	Reduce      *ReduceConfig      `yaml:"reduce,omitempty"`
}

// LocalConfig configures the filesystem backend
type LocalConfig struct {
	Root      string `yaml:"root"`
	GitCommit bool   `yaml:"git_commit"` // Commit every written file to the enclosing Git repository
}

// GitHubConfig configures the GitHub repository backend.
// The token is never stored in the file; TokenEnv names the variable holding it.
type GitHubConfig struct {
	Repo      string  `yaml:"repo"` // owner/name
	Branch    string  `yaml:"branch,omitempty"`
	TokenEnv  string  `yaml:"token_env,omitempty"`
	BaseURL   string  `yaml:"base_url,omitempty"` // GitHub Enterprise API URL
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// HuggingFaceConfig configures the Hugging Face Hub backend
type HuggingFaceConfig struct {
	Repo      string  `yaml:"repo"`
	RepoType  string  `yaml:"repo_type,omitempty"` // model, dataset or space
	Revision  string  `yaml:"revision,omitempty"`
	TokenEnv  string  `yaml:"token_env,omitempty"`
	Endpoint  string  `yaml:"endpoint,omitempty"`
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
}

// SQLiteConfig configures the SQLite backend
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ReduceConfig controls how records are folded into tables
type ReduceConfig struct {
	Strict bool `yaml:"strict"` // Reject records carrying columns their experiment does not have
}

// Default returns a validated configuration for the local backend, used when
// no evaldb.yml exists.
func Default() *EvalConfig {
	cfg := &EvalConfig{Version: "1.0"}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate performs strict validation on the configuration and fills in
// defaults for every section.
func (c *EvalConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.Folder == "" {
		c.Folder = "results"
	}
	if c.Local == nil {
		c.Local = &LocalConfig{}
	}
	if c.GitHub == nil {
		c.GitHub = &GitHubConfig{}
	}
	if c.HuggingFace == nil {
		c.HuggingFace = &HuggingFaceConfig{}
	}
	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.SQLite == nil {
		c.SQLite = &SQLiteConfig{}
	}
	if c.Reduce == nil {
		c.Reduce = &ReduceConfig{}
	}

	c.Local.applyDefaults()
	c.GitHub.applyDefaults()
	c.HuggingFace.applyDefaults()
	c.Redis.applyDefaults()
	c.SQLite.applyDefaults()

	if c.GitHub.RateLimit < 0 {
		return fmt.Errorf("github.rate_limit must be >= 0 (0 = unlimited), got %v", c.GitHub.RateLimit)
	}
	if c.HuggingFace.RateLimit < 0 {
		return fmt.Errorf("huggingface.rate_limit must be >= 0 (0 = unlimited), got %v", c.HuggingFace.RateLimit)
	}

	// Only the selected backend must be fully configured
	switch c.Backend {
	case BackendLocal, BackendSQLite:
	case BackendGitHub:
		if err := validateRepo("github", c.GitHub.Repo); err != nil {
			return err
		}
	case BackendHuggingFace:
		if err := validateRepo("huggingface", c.HuggingFace.Repo); err != nil {
			return err
		}
		switch c.HuggingFace.RepoType {
		case "model", "dataset", "space":
		default:
			return fmt.Errorf("invalid huggingface.repo_type: %s (must be 'model', 'dataset', or 'space')", c.HuggingFace.RepoType)
		}
	case BackendRedis:
		if !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
			return fmt.Errorf("invalid redis.url: %s (must start with redis:// or rediss://)", c.Redis.URL)
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be one of %s)", c.Backend, strings.Join(Backends, ", "))
	}

	return nil
}

func validateRepo(section, repo string) error {
	if repo == "" {
		return fmt.Errorf("%s.repo is required", section)
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid %s.repo: %s (expected owner/name)", section, repo)
	}
	return nil
}

func (l *LocalConfig) applyDefaults() {
	if l.Root == "" {
		l.Root = "."
	}
}

func (g *GitHubConfig) applyDefaults() {
	if g.TokenEnv == "" {
		g.TokenEnv = "GITHUB_TOKEN"
	}
}

// Token returns the GitHub token from the environment, or "" if unset.
func (g *GitHubConfig) Token() string {
	return os.Getenv(g.TokenEnv)
}

func (h *HuggingFaceConfig) applyDefaults() {
	if h.RepoType == "" {
		h.RepoType = "dataset"
	}
	if h.Revision == "" {
		h.Revision = "main"
	}
	if h.TokenEnv == "" {
		h.TokenEnv = "HF_TOKEN"
	}
	if h.Endpoint == "" {
		h.Endpoint = "https://huggingface.co"
	}
}

// Token returns the Hugging Face token from the environment, or "" if unset.
func (h *HuggingFaceConfig) Token() string {
	return os.Getenv(h.TokenEnv)
}

func (r *RedisConfig) applyDefaults() {
	if r.URL == "" {
		r.URL = "redis://localhost:6379/0"
	}
	if r.Namespace == "" {
		r.Namespace = "default"
	}
}

func (s *SQLiteConfig) applyDefaults() {
	if s.Path == "" {
		s.Path = "evaldb.sqlite"
	}
}

// Load reads and validates evaldb.yml from the specified path
func Load(path string) (*EvalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config EvalConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
