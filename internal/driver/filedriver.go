package driver

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/bytemover"
	"github.com/vexxhost/pcp/internal/metadata"
	"github.com/vexxhost/pcp/internal/pool"
	"github.com/vexxhost/pcp/internal/walker"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// copyFileWhole is the parfile strategy: the whole file becomes one unit
// and a single worker drives it end to end, reporting progress one batch at
// a time. Parallelism comes from many files being in flight at once.
func (d *Driver) copyFileWhole(op walker.FileOp) error {
	src, dst, err := d.openPair(op, true)
	if err != nil {
		return err
	}

	submitted := d.pool.Submit(pool.Unit{
		Op: op.Op,
		Run: func() error {
			defer src.Close()
			defer dst.Close()

			mover := &bytemover.Mover{Policy: d.cfg.ReflinkPolicy, FileSize: op.Length}

			// A whole-file reflink satisfies the entire operation in
			// one shot; otherwise walk the file in batches.
			cloned, err := mover.TryClone(src, dst)
			if err != nil {
				return err
			}
			if cloned {
				d.status.BytesCopied(op.Op, op.Length)
			} else if err := d.copyBatches(mover, src, dst, op); err != nil {
				return err
			}

			if err := metadata.Copy(src, dst, d.cfg.PreserveXattr); err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"op":    op.Op,
				"src":   op.Src,
				"bytes": op.Length,
			}).Debug("✅ file copied")
			return nil
		},
	})

	if !submitted {
		src.Close()
		dst.Close()
	}
	return nil
}

// copyBatches moves [0, length) through the byte mover batch_size bytes at
// a time, emitting one BytesCopied event per batch.
func (d *Driver) copyBatches(mover *bytemover.Mover, src, dst *os.File, op walker.FileOp) error {
	for offset := int64(0); offset < op.Length; offset += d.cfg.BatchSize {
		batch := d.cfg.BatchSize
		if offset+batch > op.Length {
			batch = op.Length - offset
		}

		n, err := mover.CopyRange(src, dst, batch, offset)
		if n > 0 {
			d.status.BytesCopied(op.Op, n)
		}
		if err != nil {
			return err
		}
		if n != batch {
			return xcperr.NewPath(xcperr.UnexpectedEOF, op.Src,
				fmt.Errorf("copied %d of %d at offset %d", n, batch, offset))
		}
	}
	return nil
}
