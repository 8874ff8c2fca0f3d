//go:build !linux

package metadata

import (
	"errors"
	"os"

	"github.com/vexxhost/pcp/internal/xcperr"
)

func copyXattrs(src, dst *os.File) error {
	return xcperr.NewPath(xcperr.XattrUnsupported, src.Name(),
		errors.New("extended attributes not supported on this platform"))
}
