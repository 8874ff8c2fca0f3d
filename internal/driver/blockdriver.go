package driver

import (
	"os"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/bytemover"
	"github.com/vexxhost/pcp/internal/extents"
	"github.com/vexxhost/pcp/internal/metadata"
	"github.com/vexxhost/pcp/internal/pool"
	"github.com/vexxhost/pcp/internal/walker"
)

// blockFile is the shared per-file state of a parblock copy. All workers
// touching the file hold the same open handles; positional I/O keeps them
// safe to share. The outstanding counter owns the handles: whoever drops it
// to zero finishes the file.
type blockFile struct {
	op          walker.FileOp
	src, dst    *os.File
	mover       *bytemover.Mover
	outstanding atomic.Int64
	failed      atomic.Bool
}

// copyFileBlocks is the parblock strategy: discover the allocated extents,
// slice them into block_size units, and let any worker copy any block.
// Blocks never overlap, so the shared destination needs no locking.
func (d *Driver) copyFileBlocks(op walker.FileOp) error {
	src, dst, err := d.openPair(op, false)
	if err != nil {
		return err
	}

	exts, err := extents.Of(src)
	if err != nil {
		src.Close()
		dst.Close()
		return err
	}

	bf := &blockFile{
		op:    op,
		src:   src,
		dst:   dst,
		mover: &bytemover.Mover{Policy: d.cfg.ReflinkPolicy, FileSize: op.Length},
	}

	log.WithFields(log.Fields{
		"op":      op.Op,
		"src":     op.Src,
		"extents": len(exts),
		"bytes":   op.Length,
	}).Debug("block operations prepared")

	// Hold one reference across submission so a fast worker cannot
	// finish the file while later blocks are still being queued.
	bf.outstanding.Add(1)

	for _, ext := range exts {
		if bf.failed.Load() || d.aborting.Load() {
			break
		}
		for start := ext.Start; start < ext.End; start += d.cfg.BlockSize {
			if bf.failed.Load() || d.aborting.Load() {
				break
			}
			end := start + d.cfg.BlockSize
			if end > ext.End {
				end = ext.End
			}
			bf.outstanding.Add(1)
			if !d.pool.Submit(pool.Unit{Op: op.Op, Run: d.blockUnit(bf, start, end)}) {
				bf.outstanding.Add(-1)
			}
		}
	}

	d.finishBlock(bf)
	return nil
}

// blockUnit copies one [start, end) block. A block queued behind a failed
// sibling backs out without touching the file.
func (d *Driver) blockUnit(bf *blockFile, start, end int64) func() error {
	return func() error {
		defer d.finishBlock(bf)

		if bf.failed.Load() {
			return nil
		}

		n, err := bf.mover.CopyRange(bf.src, bf.dst, end-start, start)
		if n > 0 {
			d.status.BytesCopied(bf.op.Op, n)
		}
		if err != nil {
			bf.failed.Store(true)
			return err
		}
		return nil
	}
}

// finishBlock drops one reference; the last one out copies metadata and
// closes the shared handles.
func (d *Driver) finishBlock(bf *blockFile) {
	if bf.outstanding.Add(-1) != 0 {
		return
	}
	defer bf.src.Close()
	defer bf.dst.Close()

	if bf.failed.Load() {
		log.WithFields(log.Fields{
			"op":  bf.op.Op,
			"src": bf.op.Src,
		}).Error("❌ file failed, remaining blocks cancelled")
		return
	}

	if err := metadata.Copy(bf.src, bf.dst, d.cfg.PreserveXattr); err != nil {
		d.status.Failed(bf.op.Op, err)
		return
	}

	log.WithFields(log.Fields{
		"op":    bf.op.Op,
		"src":   bf.op.Src,
		"bytes": bf.op.Length,
	}).Debug("✅ file copied")
}
