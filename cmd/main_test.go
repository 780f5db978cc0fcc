package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = os.Chdir(wd)
	})
	require.NoError(t, os.Chdir(dir))
}

func TestFindRepoRoot(t *testing.T) {
	tmp := t.TempDir()
	nested := filepath.Join(tmp, "pdks", "Ihp130")
	require.NoError(t, os.MkdirAll(nested, 0770))
	require.NoError(t, os.Mkdir(filepath.Join(tmp, ".git"), 0770))

	chdir(t, nested)
	wd, err := os.Getwd()
	require.NoError(t, err)
	expected := filepath.Dir(filepath.Dir(wd))

	root, err := findRepoRoot()
	require.NoError(t, err)
	assert.Equal(t, expected, root)
}

func TestFindRepoRootGitFile(t *testing.T) {
	// git worktrees use a .git file instead of a directory
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".git"), []byte("gitdir: elsewhere\n"), 0660))

	chdir(t, tmp)
	wd, err := os.Getwd()
	require.NoError(t, err)

	root, err := findRepoRoot()
	require.NoError(t, err)
	assert.Equal(t, wd, root)
}

func TestFindRepoRootMissing(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := findRepoRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .git entry found")
}
