package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyluth/evaldb/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore reports a transport failure on every read.
type failingStore struct {
	store.Store
}

func (failingStore) ReadFile(ctx context.Context, p string) (string, error) {
	return "", &store.TransportError{Backend: "fake", Op: "read", Err: errors.New("connection reset")}
}

func TestPollForFile(t *testing.T) {
	ctx := context.Background()

	t.Run("returns content when found immediately", func(t *testing.T) {
		s, err := store.NewLocalStore(t.TempDir())
		require.NoError(t, err)
		_, err = s.WriteFile(ctx, "results/a.json", "{}", "")
		require.NoError(t, err)

		content, err := PollForFile(ctx, s, "results/a.json", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "{}", content)
	})

	t.Run("returns content written later", func(t *testing.T) {
		s, err := store.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		go func() {
			time.Sleep(300 * time.Millisecond)
			s.WriteFile(ctx, "results/a.json", `{"late": true}`, "")
		}()

		content, err := PollForFile(ctx, s, "results/a.json", 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, `{"late": true}`, content)
	})

	t.Run("times out", func(t *testing.T) {
		s, err := store.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		start := time.Now()
		_, err = PollForFile(ctx, s, "results/a.json", 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout waiting for results/a.json")
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		s, err := store.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()

		_, err = PollForFile(cancelCtx, s, "results/a.json", 10*time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("returns store failures", func(t *testing.T) {
		_, err := PollForFile(ctx, failingStore{}, "results/a.json", time.Second)
		require.Error(t, err)
		assert.True(t, store.IsTransport(err))
	})
}
