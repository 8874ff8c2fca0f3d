package orchestrator

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// countingSink records totals the way a progress bar would.
type countingSink struct {
	total    atomic.Int64
	copied   atomic.Int64
	finished atomic.Bool
}

func (s *countingSink) GrowTotal(n int64) { s.total.Add(n) }
func (s *countingSink) Add(n int64)       { s.copied.Add(n) }
func (s *countingSink) Finish()           { s.finished.Store(true) }

func TestRunCopiesTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(src, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.bin"), bytes.Repeat([]byte{0x58}, 128*1024), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.bin"), bytes.Repeat([]byte{7}, 10_000), 0o600))

	dest := filepath.Join(dir, "out")
	cfg := config.Default()
	cfg.Recursive = true
	cfg.WorkerCount = 4

	sink := &countingSink{}
	require.NoError(t, Run(&cfg, []string{src, dest}, sink))

	assert.True(t, sink.finished.Load())
	assert.Equal(t, int64(128*1024+10_000), sink.total.Load())
	assert.Equal(t, sink.total.Load(), sink.copied.Load())

	for _, rel := range []string{"a.bin", filepath.Join("sub", "b.bin")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		assert.Equal(t, sha256.Sum256(want), sha256.Sum256(got), rel)
	}

	fi, err := os.Stat(filepath.Join(dest, "sub"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), fi.Mode().Perm())
}

func TestRunBlockDriver(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	content := bytes.Repeat([]byte{0x58}, 128*1024)
	require.NoError(t, os.WriteFile(src, content, 0o644))
	dest := filepath.Join(dir, "dst.bin")

	cfg := config.Default()
	cfg.Driver = config.DriverBlock
	cfg.BlockSize = 32 * 1024
	cfg.WorkerCount = 4

	sink := &countingSink{}
	require.NoError(t, Run(&cfg, []string{src, dest}, sink))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(content), sha256.Sum256(got))
	assert.Equal(t, int64(128*1024), sink.copied.Load())
}

func TestRunPreflightFailureCopiesNothing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	dest := filepath.Join(dir, "dest")
	for _, p := range []string{a, b, dest} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	cfg := config.Default()
	sink := &countingSink{}
	err := Run(&cfg, []string{a, b, dest}, sink)
	require.Error(t, err)
	assert.Equal(t, xcperr.InvalidDestination, xcperr.KindOf(err))
	assert.False(t, sink.finished.Load())
	assert.Zero(t, sink.copied.Load())
}

func TestRunSurfacesDriverOpenFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	dest := filepath.Join(dir, "out", "nested", "dst.bin")

	// The parent of dest does not exist, so the open fails inside the
	// driver and must come back as a run error.
	cfg := config.Default()
	sink := &countingSink{}
	err := Run(&cfg, []string{src, dest}, sink)
	require.Error(t, err)
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 1, xcperr.InvalidArguments.ExitCode())
	assert.Equal(t, 1, xcperr.InvalidSource.ExitCode())
	assert.Equal(t, 1, xcperr.InvalidDestination.ExitCode())
	assert.Equal(t, 2, xcperr.IO.ExitCode())
	assert.Equal(t, 2, xcperr.UnexpectedEOF.ExitCode())
	assert.Equal(t, 3, xcperr.UnsupportedOS.ExitCode())
	assert.Equal(t, 3, xcperr.UnsupportedFilesystem.ExitCode())
}
