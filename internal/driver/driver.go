// Package driver implements the two copy strategies: parfile fans the
// worker pool out over whole files, parblock fans it out over the extents
// of every file. The variant set is fixed, so dispatch is a tag switch on
// the configured driver rather than an interface.
package driver

import (
	"fmt"
	"os"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/extents"
	"github.com/vexxhost/pcp/internal/pool"
	"github.com/vexxhost/pcp/internal/statusbus"
	"github.com/vexxhost/pcp/internal/walker"
	"github.com/vexxhost/pcp/internal/xcperr"
)

// Driver owns the worker pool and the producing half of the status bus for
// one run.
type Driver struct {
	cfg      *config.Config
	status   *statusbus.Sender
	pool     *pool.Pool
	aborting *atomic.Bool
}

// New builds the configured driver variant and starts its worker pool. The
// driver takes its own clone of status and releases it when CopyAll
// returns.
func New(cfg *config.Config, status *statusbus.Sender, aborting *atomic.Bool) *Driver {
	return &Driver{
		cfg:      cfg,
		status:   status.Clone(),
		pool:     pool.New(cfg.WorkerCount, status, aborting),
		aborting: aborting,
	}
}

// SupportedPlatform reports whether the selected driver can run here. The
// block driver needs the extent-mapping primitive and refuses to start
// without it.
func SupportedPlatform(cfg *config.Config) error {
	if cfg.Driver == config.DriverBlock && !extents.Supported() {
		return xcperr.New(xcperr.UnsupportedOS,
			fmt.Errorf("parblock driver needs extent mapping, unavailable on this platform"))
	}
	return nil
}

// CopyAll walks every source into dest, feeding the pool, and returns once
// all submitted work has finished. The returned error is a walk-side
// failure; per-file worker failures travel the status bus instead.
func (d *Driver) CopyAll(sources []string, dest string, destIsDir bool) error {
	defer d.status.Close()
	defer d.pool.Join()

	log.WithFields(log.Fields{
		"driver":  config.DriverIDs[d.cfg.Driver][0],
		"sources": len(sources),
		"dest":    dest,
	}).Info("🚀 starting copy")

	w := walker.New(d.cfg, d.status, d.aborting)
	return w.Walk(sources, dest, destIsDir, d.CopySingle)
}

// CopySingle routes one file operation to the configured variant.
func (d *Driver) CopySingle(op walker.FileOp) error {
	switch d.cfg.Driver {
	case config.DriverBlock:
		return d.copyFileBlocks(op)
	default:
		return d.copyFileWhole(op)
	}
}

// openPair opens the source read-only and the destination for writing,
// honouring no-clobber, and sets the destination length up front so
// concurrent writers never race an extend. allocate additionally reserves
// blocks for the whole range; the block driver leaves it off so the holes
// it never writes stay holes.
func (d *Driver) openPair(op walker.FileOp, allocate bool) (src, dst *os.File, err error) {
	src, err = os.Open(op.Src)
	if err != nil {
		return nil, nil, xcperr.NewPath(xcperr.InvalidSource, op.Src, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if d.cfg.NoClobber {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	dst, err = os.OpenFile(op.Dst, flags, 0o644)
	if err != nil {
		src.Close()
		if os.IsExist(err) {
			return nil, nil, xcperr.NewPath(xcperr.InvalidDestination, op.Dst,
				fmt.Errorf("exists and --no-clobber is set"))
		}
		return nil, nil, xcperr.NewPath(xcperr.IO, op.Dst, err)
	}

	if op.Preallocate && op.Length > 0 {
		if allocate {
			if err := preallocate(dst, op.Length); err != nil {
				log.WithField("dst", op.Dst).WithError(err).Debug("preallocation skipped")
			}
		}
		if err := dst.Truncate(op.Length); err != nil {
			src.Close()
			dst.Close()
			return nil, nil, xcperr.NewPath(xcperr.IO, op.Dst, fmt.Errorf("truncate: %w", err))
		}
	}
	return src, dst, nil
}
