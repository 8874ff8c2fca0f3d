// Package bytemover moves a contiguous byte range between two open files
// using the best kernel primitive the filesystem offers, falling down a
// fixed ladder: whole-file reflink clone, then an in-kernel range copy,
// then a positional read/write loop through a user-space buffer.
package bytemover

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// bufSize is the unit of the user-space fallback loop. Each worker borrows
// one buffer at a time from a shared pool.
const bufSize = 1 << 20

var bufPool = sync.Pool{
	New: func() any { return make([]byte, bufSize) },
}

// errUnsupported signals that a primitive is not available on this kernel
// or filesystem and the ladder should fall through to the next rung.
var errUnsupported = errors.New("primitive unsupported")

// Mover copies ranges of one source file. FileSize is the full source
// length; it gates whole-file clone eligibility.
type Mover struct {
	Policy   config.ReflinkPolicy
	FileSize int64
}

// TryClone attempts a whole-file reflink of src into dst. It reports
// whether the clone happened. With ReflinkAlways an unsupported filesystem
// is an error; with ReflinkAuto it is a silent fall-through; with
// ReflinkNever the attempt is skipped entirely.
func (m *Mover) TryClone(src, dst *os.File) (bool, error) {
	if m.Policy == config.ReflinkNever {
		return false, nil
	}
	err := cloneFile(src, dst)
	if err == nil {
		log.WithFields(log.Fields{
			"src":   src.Name(),
			"bytes": m.FileSize,
		}).Debug("whole-file reflink clone")
		return true, nil
	}
	if errors.Is(err, errUnsupported) {
		if m.Policy == config.ReflinkAlways {
			return false, xcperr.NewPath(xcperr.UnsupportedFilesystem, dst.Name(),
				fmt.Errorf("reflink requested but not supported: %w", err))
		}
		return false, nil
	}
	return false, xcperr.NewPath(xcperr.IO, dst.Name(), err)
}

// CopyRange moves length bytes from src at offset to dst at the same
// offset. On success the returned count equals length. The destination may
// hold partial bytes after a failure; there is no rollback.
func (m *Mover) CopyRange(src, dst *os.File, length, offset int64) (int64, error) {
	if length == 0 {
		return 0, nil
	}

	// Rung 1: whole-file clone, only when the range is the entire file.
	if offset == 0 && length == m.FileSize {
		cloned, err := m.TryClone(src, dst)
		if err != nil {
			return 0, err
		}
		if cloned {
			return length, nil
		}
	}

	// Rung 2: in-kernel range copy. A mid-range refusal keeps the bytes
	// already moved and hands the remainder to the user-space rung.
	n, err := copyRangeKernel(src, dst, length, offset)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, errUnsupported) {
		return n, err
	}

	// Rung 3: positional user-space loop.
	rest, err := m.copyRangeUserspace(src, dst, length-n, offset+n)
	return n + rest, err
}

// copyRangeUserspace is the last rung: pread into a pooled buffer, pwrite
// at the same offset, until length bytes have moved.
func (m *Mover) copyRangeUserspace(src, dst *os.File, length, offset int64) (int64, error) {
	buf := bufPool.Get().([]byte)
	defer bufPool.Put(buf)

	var copied int64
	for copied < length {
		chunk := length - copied
		if chunk > int64(len(buf)) {
			chunk = int64(len(buf))
		}

		n, err := pread(src, buf[:chunk], offset+copied)
		if err != nil && err != io.EOF {
			return copied, xcperr.NewPath(xcperr.IO, src.Name(), fmt.Errorf("read at %d: %w", offset+copied, err))
		}
		if n == 0 {
			return copied, xcperr.NewPath(xcperr.UnexpectedEOF, src.Name(),
				fmt.Errorf("source ended at %d, expected %d more bytes", offset+copied, length-copied))
		}

		w, err := pwrite(dst, buf[:n], offset+copied)
		if err != nil {
			return copied + int64(w), xcperr.NewPath(xcperr.IO, dst.Name(), fmt.Errorf("write at %d: %w", offset+copied, err))
		}
		if w < n {
			return copied + int64(w), xcperr.NewPath(xcperr.IO, dst.Name(),
				fmt.Errorf("short write at %d: wrote %d of %d", offset+copied, w, n))
		}
		copied += int64(n)
	}
	return copied, nil
}
