// Package testutil holds helpers shared by tests across packages: temp
// workspaces, Git repositories, sample records and a Redis container.
package testutil

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile writes content to dir/name (slash-separated), creating parent
// directories, and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// ReadFile returns the content of dir/name, failing the test if it is missing.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err, "Expected file to exist: %s", name)
	return string(data)
}

// InitGitRepo creates a Git repository in a new temp directory with a test
// identity and signing disabled. Skips the test if git is not installed.
func InitGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@evaldb.local"},
		{"config", "user.name", "evaldb Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		Git(t, dir, args...)
	}
	return dir
}

// Git runs a git command in dir and returns its trimmed output.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
	return strings.TrimSpace(string(out))
}

// RecordJSON renders a record file with the given maps and empty information.
func RecordJSON(t *testing.T, experiment string, model, result map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(map[string]any{
		"experiment_name":   experiment,
		"model_hyperparams": orEmpty(model),
		"train_hyperparams": map[string]any{},
		"information":       map[string]any{"save_link": nil, "train_dataset": nil, "description": nil},
		"result":            orEmpty(result),
	}, "", "    ")
	require.NoError(t, err)
	return string(data)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
