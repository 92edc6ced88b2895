package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Checker runs git commands against the working tree containing dir.
type Checker struct {
	dir string
}

// NewChecker creates a Git checker rooted at dir. An empty dir means the
// current directory.
func NewChecker(dir string) *Checker {
	return &Checker{dir: dir}
}

func (c *Checker) command(args ...string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.dir
	return cmd
}

// IsGitRepository checks if the directory is within a Git repository
func (c *Checker) IsGitRepository() (bool, error) {
	err := c.command("rev-parse", "--git-dir").Run()
	if err != nil {
		if _, ok := err.(*exec.Error); ok {
			return false, fmt.Errorf("git not found in PATH\nCommitting local results requires Git to be installed.\nInstall Git: https://git-scm.com/downloads")
		}
		return false, nil
	}
	return true, nil
}

// GetGitRoot returns the absolute path to the Git repository root
func (c *Checker) GetGitRoot() (string, error) {
	output, err := c.command("rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// HasChanges reports whether any of paths differ from HEAD, including
// untracked files.
func (c *Checker) HasChanges(paths ...string) (bool, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	output, err := c.command(args...).Output()
	if err != nil {
		return false, fmt.Errorf("failed to check Git status: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// Commit stages paths and commits only those paths with message.
// Returns the new commit hash, or "" when none of the paths changed.
func (c *Checker) Commit(message string, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no paths to commit")
	}

	changed, err := c.HasChanges(paths...)
	if err != nil {
		return "", err
	}
	if !changed {
		return "", nil
	}

	addArgs := append([]string{"add", "--"}, paths...)
	if output, err := c.command(addArgs...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("git add failed: %w\n%s", err, strings.TrimSpace(string(output)))
	}

	commitArgs := append([]string{"commit", "-m", message, "--"}, paths...)
	if output, err := c.command(commitArgs...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("git commit failed: %w\n%s", err, strings.TrimSpace(string(output)))
	}

	output, err := c.command("rev-parse", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("failed to read commit hash: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
