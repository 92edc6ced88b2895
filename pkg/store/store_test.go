package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Compile-time checks that every backend satisfies Store.
var (
	_ Store = (*LocalStore)(nil)
	_ Store = (*GitHubStore)(nil)
	_ Store = (*HuggingFaceStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func TestDefaultCommitMessage(t *testing.T) {
	assert.Equal(t, "Update results/a.json", DefaultCommitMessage("results/a.json"))
	assert.Equal(t, "custom", commitMessageOrDefault("custom", "results/a.json"))
	assert.Equal(t, "Update results/a.json", commitMessageOrDefault("", "results/a.json"))
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: ".", want: ""},
		{in: "/", want: ""},
		{in: "results", want: "results"},
		{in: "/results/", want: "results"},
		{in: "results//nested/./a.json", want: "results/nested/a.json"},
		{in: `results\win\a.json`, want: "results/win/a.json"},
		{in: "../up", wantErr: true},
		{in: "results/../../up", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanPath(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := cleanFilePath("/")
	assert.Error(t, err)
}

func TestErrorHelpers(t *testing.T) {
	notFound := fmt.Errorf("listing: %w", &NotFoundError{Backend: "local", Path: "results"})
	auth := &AuthError{Backend: "github", Err: errors.New("bad token")}
	transport := &TransportError{Backend: "redis", Op: "list", Err: errors.New("connection refused")}

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(auth))
	assert.True(t, IsAuth(auth))
	assert.False(t, IsAuth(transport))
	assert.True(t, IsTransport(transport))
	assert.False(t, IsTransport(notFound))

	assert.Equal(t, "local: 'results' not found", (&NotFoundError{Backend: "local", Path: "results"}).Error())
	assert.Equal(t, "github: authentication failed: bad token", auth.Error())
	assert.Equal(t, "redis: list failed: connection refused", transport.Error())
}
