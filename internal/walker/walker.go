// Package walker traverses the source trees, mirrors directory structure at
// the destination, and emits one FileOp per regular file for a driver to
// consume.
package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/statusbus"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// FileOp is a request to copy one regular file. The operation id correlates
// every status event the copy of this file produces.
type FileOp struct {
	Op          uuid.UUID
	Src         string
	Dst         string
	Length      int64
	Preallocate bool
}

// EmitFunc receives each FileOp in walk order. Returning an error stops the
// walk.
type EmitFunc func(op FileOp) error

// Walker produces FileOps from a set of source paths.
type Walker struct {
	cfg      *config.Config
	status   *statusbus.Sender
	aborting *atomic.Bool
}

// New builds a walker. The walker borrows status; it does not close it.
func New(cfg *config.Config, status *statusbus.Sender, aborting *atomic.Bool) *Walker {
	return &Walker{cfg: cfg, status: status, aborting: aborting}
}

// Walk visits every source in order. When destIsDir each source lands in
// dest under its own basename; otherwise dest is the final name of the
// single source.
func (w *Walker) Walk(sources []string, dest string, destIsDir bool, emit EmitFunc) error {
	for _, src := range sources {
		if w.aborting.Load() {
			log.Debug("walker stopping: run is aborting")
			return nil
		}

		dst := dest
		if destIsDir {
			dst = filepath.Join(dest, filepath.Base(src))
		}
		if err := w.walkOne(src, dst, emit); err != nil {
			return err
		}
	}
	return nil
}

// walkOne dispatches on the type of a single source path.
func (w *Walker) walkOne(src, dst string, emit EmitFunc) error {
	fi, err := w.stat(src)
	if err != nil {
		return xcperr.NewPath(xcperr.InvalidSource, src, err)
	}

	switch {
	case fi.Mode().IsRegular():
		return w.emitFile(src, dst, fi, emit)

	case fi.IsDir():
		if !w.cfg.Recursive {
			return xcperr.NewPath(xcperr.InvalidSource, src,
				fmt.Errorf("is a directory (use --recursive)"))
		}
		return w.walkDir(src, dst, fi, emit)

	case fi.Mode()&os.ModeSymlink != 0:
		// Only reachable with follow_symlinks off; stat resolved it
		// otherwise.
		return w.recreateSymlink(src, dst)

	default:
		log.WithFields(log.Fields{
			"path": src,
			"mode": fi.Mode().String(),
		}).Warn("⚠️ skipping special file")
		w.status.Failed(uuid.New(), xcperr.NewPath(xcperr.SpecialSkipped, src,
			fmt.Errorf("unsupported file type %s", fi.Mode().Type())))
		return nil
	}
}

// walkDir creates the mirrored directory, copies its permission bits, and
// recurses depth-first over sorted entries.
func (w *Walker) walkDir(src, dst string, fi os.FileInfo, emit EmitFunc) error {
	if err := os.MkdirAll(dst, fi.Mode().Perm()); err != nil {
		return xcperr.NewPath(xcperr.IO, dst, fmt.Errorf("mkdir: %w", err))
	}
	// MkdirAll masks with umask; restate the source bits explicitly.
	if err := os.Chmod(dst, fi.Mode().Perm()); err != nil {
		return xcperr.NewPath(xcperr.IO, dst, fmt.Errorf("chmod: %w", err))
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return xcperr.NewPath(xcperr.InvalidSource, src, fmt.Errorf("readdir: %w", err))
	}

	for _, entry := range entries {
		if w.aborting.Load() {
			return nil
		}
		name := entry.Name()
		if err := w.walkOne(filepath.Join(src, name), filepath.Join(dst, name), emit); err != nil {
			return err
		}
	}
	return nil
}

// emitFile publishes the size for the progress total and hands the FileOp
// to the driver.
func (w *Walker) emitFile(src, dst string, fi os.FileInfo, emit EmitFunc) error {
	op := FileOp{
		Op:          uuid.New(),
		Src:         src,
		Dst:         dst,
		Length:      fi.Size(),
		Preallocate: true,
	}

	w.status.SizeDiscovered(op.Op, op.Length)

	log.WithFields(log.Fields{
		"op":    op.Op,
		"src":   src,
		"dst":   dst,
		"bytes": op.Length,
	}).Debug("file operation emitted")

	return emit(op)
}

// recreateSymlink replants the link itself rather than its target.
func (w *Walker) recreateSymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return xcperr.NewPath(xcperr.InvalidSource, src, fmt.Errorf("readlink: %w", err))
	}
	if w.cfg.NoClobber {
		if _, err := os.Lstat(dst); err == nil {
			return xcperr.NewPath(xcperr.InvalidDestination, dst,
				fmt.Errorf("exists and --no-clobber is set"))
		}
	} else {
		// Symlink refuses to overwrite; clear the slot first.
		_ = os.Remove(dst)
	}
	if err := os.Symlink(target, dst); err != nil {
		return xcperr.NewPath(xcperr.IO, dst, fmt.Errorf("symlink: %w", err))
	}
	return nil
}

// stat resolves src honouring the follow-symlinks policy.
func (w *Walker) stat(src string) (os.FileInfo, error) {
	if w.cfg.FollowSymlinks {
		return os.Stat(src)
	}
	return os.Lstat(src)
}
