package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/evaldb/pkg/store"
)

// PollInterval is how often PollForFile checks the store.
var PollInterval = 200 * time.Millisecond

// PollForFile polls s until path exists and returns its content.
// Returns an error if the timeout elapses first or the store fails with
// anything other than not-found.
func PollForFile(ctx context.Context, s store.Store, path string, timeout time.Duration) (string, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		content, err := s.ReadFile(ctx, path)
		if err == nil {
			return content, nil
		}
		if !store.IsNotFound(err) {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeoutCh:
			return "", fmt.Errorf("timeout waiting for %s after %v", path, timeout)
		case <-ticker.C:
		}
	}
}
