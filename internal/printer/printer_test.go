package printer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects output to buffers with colors disabled.
func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	restore := SetOutput(&stdout, &stderr)

	noColor := color.NoColor
	color.NoColor = true

	t.Cleanup(func() {
		restore()
		color.NoColor = noColor
	})
	return &stdout, &stderr
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, stderr := capture(t)

		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.True(t, IsReported(err))
		assert.True(t, IsReported(fmt.Errorf("wrapped: %w", err)))
		assert.False(t, IsReported(errors.New("plain")))
		assert.Equal(t, "Test Error\n\nThis is a test error\n", stderr.String())
	})

	t.Run("single suggestion is printed on its own", func(t *testing.T) {
		_, stderr := capture(t)

		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "\nTry this fix\n")
		assert.NotContains(t, stderr.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, stderr := capture(t)

		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, stderr.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, stderr := capture(t)

	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Path":    "results/a.json",
		"Backend": "github",
	}, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, stderr.String(), "  Backend: github\n  Path: results/a.json\n")
}

func TestMessages(t *testing.T) {
	stdout, stderr := capture(t)

	Success("Wrote %s\n", "a.json")
	Success("✓ already marked\n")
	Info("plain %d\n", 1)
	Step("Listing %s\n", "results")
	Warning("Skipping %s\n", "b.json")

	assert.Equal(t, "✓ Wrote a.json\n✓ already marked\nplain 1\n→ Listing results\n", stdout.String())
	assert.Equal(t, "⚠️  Skipping b.json\n", stderr.String())
}
