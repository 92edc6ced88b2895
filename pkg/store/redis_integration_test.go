//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/evaldb/internal/testutil"
	"github.com/redis/go-redis/v9"
)

// TestRedisStore_RealServer writes, lists and streams files against a real Redis.
func TestRedisStore_RealServer(t *testing.T) {
	redisURL := testutil.StartRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	s, err := NewRedisStore(opts, "integration")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	sub, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 3; i++ {
		p := fmt.Sprintf("results/run-%d.json", i)
		if _, err := s.WriteFile(ctx, p, fmt.Sprintf(`{"run": %d}`, i), ""); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", p, err)
		}
	}

	files, err := s.ListFolder(ctx, "results")
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 files, got %d", len(files))
	}

	for i := 0; i < 3; i++ {
		select {
		case event := <-sub.Events():
			if !event.Created {
				t.Errorf("expected created event for %s", event.Path)
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for file events")
		}
	}
}
