package pathutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/statfang/pkg/pathutil"
)

func TestResolve_AbsoluteAndClean(t *testing.T) {
	t.Parallel()

	got, err := pathutil.Resolve("/runs/../runs/a/")
	require.NoError(t, err)
	assert.Equal(t, "/runs/a", got)
}

func TestResolve_HomeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := pathutil.Resolve("~/runs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "runs"), got)
}

func TestEnsureFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "stats.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.NoError(t, pathutil.EnsureFile(path))
	require.ErrorIs(t, pathutil.EnsureFile(filepath.Join(dir, "absent.txt")), pathutil.ErrFileNotFound)
	require.ErrorIs(t, pathutil.EnsureFile(dir), pathutil.ErrFileNotFound)
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "stats.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.NoError(t, pathutil.EnsureDir(dir))
	require.ErrorIs(t, pathutil.EnsureDir(path), pathutil.ErrNotADirectory)
	require.ErrorIs(t, pathutil.EnsureDir(filepath.Join(dir, "absent")), pathutil.ErrFileNotFound)
}
