package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyPermissionBits(t *testing.T) {
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o640))
	require.NoError(t, os.Chmod(srcPath, 0o751))

	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(dstPath, []byte("data"), 0o600))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, Copy(src, dst, false))

	fi, err := os.Stat(dstPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o751), fi.Mode().Perm())
}

func TestCopyWithXattrsIsBestEffort(t *testing.T) {
	// Whatever the filesystem thinks of xattrs, the permission copy must
	// still land and Copy must not fail.
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(srcPath, []byte("data"), 0o644))
	dstPath := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(dstPath, []byte("data"), 0o600))

	src, err := os.Open(srcPath)
	require.NoError(t, err)
	defer src.Close()
	dst, err := os.OpenFile(dstPath, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer dst.Close()

	require.NoError(t, Copy(src, dst, true))

	fi, err := os.Stat(dstPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())
}
