// Package metadata replicates file metadata onto a finished copy: extended
// attributes first, then permission bits. Attribute failures are demoted to
// warnings; a permission failure is an error for the file.
package metadata

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/vexxhost/pcp/internal/xcperr"
)

// Copy replicates xattrs (when preserveXattr is set) and mode bits from
// src onto dst. Both files must still be open; the copy of the bytes is
// assumed complete.
func Copy(src, dst *os.File, preserveXattr bool) error {
	if preserveXattr {
		if err := copyXattrs(src, dst); err != nil {
			log.WithFields(log.Fields{
				"src": src.Name(),
				"dst": dst.Name(),
			}).WithError(err).Warn("⚠️ extended attributes not copied")
		}
	}

	fi, err := src.Stat()
	if err != nil {
		return xcperr.NewPath(xcperr.IO, src.Name(), fmt.Errorf("stat: %w", err))
	}
	if err := dst.Chmod(fi.Mode().Perm()); err != nil {
		return xcperr.NewPath(xcperr.IO, dst.Name(), fmt.Errorf("chmod: %w", err))
	}
	return nil
}
