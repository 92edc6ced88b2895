package commands

import (
	"testing"

	"github.com/dyluth/evaldb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Successfully initialized evaldb project")
	assert.DirExists(t, dir+"/results")

	cfg, err := config.Load(dir + "/evaldb.yml")
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, cfg.Backend)

	_, stderr, err := execute(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, stderr, "project already initialized")
	assert.Contains(t, stderr, "evaldb init --force")

	_, _, err = execute(t, dir, "init", "--force")
	require.NoError(t, err)
}
