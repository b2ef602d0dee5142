// Package logging verifies logger construction.
package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDevelopment(t *testing.T) {
	t.Parallel()

	logger, err := New(true, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debug("dev logger works")
}

func TestNewProduction(t *testing.T) {
	t.Parallel()

	logger, err := New(false, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("prod logger works")
}

func TestNewWithFileTee(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watcher.log")
	logger, err := New(false, path)
	require.NoError(t, err)

	logger.Info("written to file")
	// Sync can report EINVAL for the stderr core on Linux; only the file
	// contents matter here.
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
