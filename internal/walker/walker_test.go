package walker

import (
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/statusbus"
	"github.com/vexxhost/pcp/internal/xcperr"
)

type walkResult struct {
	ops    []FileOp
	events []statusbus.Event
}

func walkTree(t *testing.T, cfg *config.Config, sources []string, dest string, destIsDir bool) (walkResult, error) {
	t.Helper()

	bus, sender := statusbus.New(128)
	var aborting atomic.Bool
	w := New(cfg, sender, &aborting)

	var res walkResult
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range bus.Events() {
			res.events = append(res.events, ev)
		}
	}()

	err := w.Walk(sources, dest, destIsDir, func(op FileOp) error {
		res.ops = append(res.ops, op)
		return nil
	})
	sender.Close()
	<-drained
	return res, err
}

func TestWalkSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	cfg := config.Default()
	res, err := walkTree(t, &cfg, []string{src}, filepath.Join(dir, "b.txt"), false)
	require.NoError(t, err)

	require.Len(t, res.ops, 1)
	assert.Equal(t, src, res.ops[0].Src)
	assert.Equal(t, filepath.Join(dir, "b.txt"), res.ops[0].Dst)
	assert.Equal(t, int64(5), res.ops[0].Length)

	require.Len(t, res.events, 1)
	assert.Equal(t, statusbus.SizeDiscovered, res.events[0].Kind)
	assert.Equal(t, int64(5), res.events[0].Bytes)
	assert.Equal(t, res.ops[0].Op, res.events[0].Op)
}

func TestWalkIntoDirectoryUsesBasename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))
	destDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(destDir, 0o755))

	cfg := config.Default()
	res, err := walkTree(t, &cfg, []string{src}, destDir, true)
	require.NoError(t, err)

	require.Len(t, res.ops, 1)
	assert.Equal(t, filepath.Join(destDir, "a.txt"), res.ops[0].Dst)
}

func TestWalkDirectoryWithoutRecursive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.Mkdir(src, 0o755))

	cfg := config.Default()
	_, err := walkTree(t, &cfg, []string{src}, filepath.Join(dir, "out"), false)
	require.Error(t, err)
	assert.Equal(t, xcperr.InvalidSource, xcperr.KindOf(err))
}

func TestWalkMirrorsTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deeper"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(src, "sub"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "mid.txt"), []byte("middle"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deeper", "leaf.txt"), []byte("leafleaf"), 0o644))

	cfg := config.Default()
	cfg.Recursive = true
	dest := filepath.Join(dir, "out")

	res, err := walkTree(t, &cfg, []string{src}, dest, false)
	require.NoError(t, err)

	assert.Len(t, res.ops, 3)

	fi, err := os.Stat(filepath.Join(dest, "sub"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, os.FileMode(0o750), fi.Mode().Perm())

	fi, err = os.Stat(filepath.Join(dest, "sub", "deeper"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	var total int64
	for _, ev := range res.events {
		if ev.Kind == statusbus.SizeDiscovered {
			total += ev.Bytes
		}
	}
	assert.Equal(t, int64(len("top")+len("middle")+len("leafleaf")), total)
}

func TestWalkRecreatesSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("real"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link")))

	cfg := config.Default()
	cfg.Recursive = true
	dest := filepath.Join(dir, "out")

	res, err := walkTree(t, &cfg, []string{src}, dest, false)
	require.NoError(t, err)

	// The link itself produces no file operation.
	require.Len(t, res.ops, 1)

	target, err := os.Readlink(filepath.Join(dest, "link"))
	require.NoError(t, err)
	assert.Equal(t, "real.txt", target)
}

func TestWalkFollowsSymlinkWhenAsked(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("real"), 0o644))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link")))

	cfg := config.Default()
	cfg.Recursive = true
	cfg.FollowSymlinks = true
	dest := filepath.Join(dir, "out")

	res, err := walkTree(t, &cfg, []string{src}, dest, false)
	require.NoError(t, err)

	// Both the file and the followed link become copy operations.
	assert.Len(t, res.ops, 2)
}

func TestWalkSkipsSpecialFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tree")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "real.txt"), []byte("real"), 0o644))

	ln, err := net.Listen("unix", filepath.Join(src, "sock"))
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Recursive = true

	res, err := walkTree(t, &cfg, []string{src}, filepath.Join(dir, "out"), false)
	require.NoError(t, err)

	require.Len(t, res.ops, 1, "the socket must not become a copy operation")

	var skips int
	for _, ev := range res.events {
		if ev.Kind == statusbus.Failed {
			assert.Equal(t, xcperr.SpecialSkipped, xcperr.KindOf(ev.Err))
			skips++
		}
	}
	assert.Equal(t, 1, skips)
}
