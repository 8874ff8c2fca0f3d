//go:build linux

package extents

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/vexxhost/pcp/internal/xcperr"
)

// Supported reports whether this platform can probe holes at all. The
// Block Driver refuses to run where it cannot.
func Supported() bool { return true }

// probe walks the file with alternating SEEK_DATA/SEEK_HOLE seeks. ENXIO
// past the last data run ends the walk; a filesystem that rejects the
// whence values yields one whole-file extent.
func probe(f *os.File, size int64) ([]Extent, error) {
	var exts []Extent
	off := int64(0)

	for off < size {
		data, err := unix.Seek(int(f.Fd()), off, unix.SEEK_DATA)
		if err == unix.ENXIO {
			break
		}
		if err == unix.EINVAL || err == unix.EOPNOTSUPP {
			return []Extent{{Start: 0, End: size}}, nil
		}
		if err != nil {
			return nil, xcperr.NewPath(xcperr.IO, f.Name(), fmt.Errorf("seek data at %d: %w", off, err))
		}
		if data >= size {
			break
		}

		hole, err := unix.Seek(int(f.Fd()), data, unix.SEEK_HOLE)
		if err != nil {
			return nil, xcperr.NewPath(xcperr.IO, f.Name(), fmt.Errorf("seek hole at %d: %w", data, err))
		}
		if hole > size {
			hole = size
		}

		exts = append(exts, Extent{Start: data, End: hole})
		off = hole
	}
	return exts, nil
}
