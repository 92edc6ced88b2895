// Package backend turns an evaldb.yml configuration into a ready store.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/evaldb/internal/config"
	"github.com/dyluth/evaldb/pkg/store"
	"github.com/redis/go-redis/v9"
)

// Open creates the store selected by cfg.Backend. Stores holding a
// connection (redis, sqlite) must be released with Close.
func Open(ctx context.Context, cfg *config.EvalConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return store.NewLocalStore(cfg.Local.Root, store.WithGitCommit(cfg.Local.GitCommit))

	case config.BackendGitHub:
		return store.NewGitHubStore(store.GitHubOptions{
			Repo:      cfg.GitHub.Repo,
			Branch:    cfg.GitHub.Branch,
			Token:     cfg.GitHub.Token(),
			BaseURL:   cfg.GitHub.BaseURL,
			RateLimit: cfg.GitHub.RateLimit,
		})

	case config.BackendHuggingFace:
		return store.NewHuggingFaceStore(store.HuggingFaceOptions{
			Repo:      cfg.HuggingFace.Repo,
			RepoType:  cfg.HuggingFace.RepoType,
			Revision:  cfg.HuggingFace.Revision,
			Token:     cfg.HuggingFace.Token(),
			Endpoint:  cfg.HuggingFace.Endpoint,
			RateLimit: cfg.HuggingFace.RateLimit,
		})

	case config.BackendRedis:
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		s, err := store.NewRedisStore(redisOpts, cfg.Redis.Namespace)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	case config.BackendSQLite:
		return store.NewSQLiteStore(ctx, cfg.SQLite.Path)

	default:
		return nil, fmt.Errorf("unknown backend '%s'", cfg.Backend)
	}
}

// Close releases s if it holds a connection.
func Close(s store.Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Describe returns a short human-readable location for the configured
// backend, used in command output.
func Describe(cfg *config.EvalConfig) string {
	switch cfg.Backend {
	case config.BackendLocal:
		return fmt.Sprintf("local:%s", cfg.Local.Root)
	case config.BackendGitHub:
		if cfg.GitHub.Branch != "" {
			return fmt.Sprintf("github:%s@%s", cfg.GitHub.Repo, cfg.GitHub.Branch)
		}
		return fmt.Sprintf("github:%s", cfg.GitHub.Repo)
	case config.BackendHuggingFace:
		return fmt.Sprintf("huggingface:%s/%s@%s", cfg.HuggingFace.RepoType, cfg.HuggingFace.Repo, cfg.HuggingFace.Revision)
	case config.BackendRedis:
		return fmt.Sprintf("redis:%s", cfg.Redis.Namespace)
	case config.BackendSQLite:
		return fmt.Sprintf("sqlite:%s", cfg.SQLite.Path)
	default:
		return cfg.Backend
	}
}
