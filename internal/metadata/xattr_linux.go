//go:build linux

package metadata

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/vexxhost/pcp/internal/xcperr"
)

// copyXattrs enumerates every attribute name on src and replays each value
// onto dst. A filesystem without xattr support returns XattrUnsupported;
// individual attribute failures abort with the same demoted kind since the
// caller treats the whole pass as best-effort.
func copyXattrs(src, dst *os.File) error {
	names, err := listXattrs(src)
	if err != nil {
		return err
	}

	for _, name := range names {
		value, err := getXattr(src, name)
		if err != nil {
			return err
		}
		if err := unix.Fsetxattr(int(dst.Fd()), name, value, 0); err != nil {
			return xcperr.NewPath(xcperr.XattrUnsupported, dst.Name(),
				fmt.Errorf("fsetxattr %q: %w", name, err))
		}
	}
	return nil
}

// listXattrs sizes and fetches the NUL-delimited name list, retrying when
// an attribute lands between the two calls.
func listXattrs(f *os.File) ([]string, error) {
	for {
		size, err := unix.Flistxattr(int(f.Fd()), nil)
		if err != nil {
			return nil, xcperr.NewPath(xcperr.XattrUnsupported, f.Name(), fmt.Errorf("flistxattr: %w", err))
		}
		if size == 0 {
			return nil, nil
		}

		buf := make([]byte, size)
		n, err := unix.Flistxattr(int(f.Fd()), buf)
		if err == unix.ERANGE {
			continue
		}
		if err != nil {
			return nil, xcperr.NewPath(xcperr.XattrUnsupported, f.Name(), fmt.Errorf("flistxattr: %w", err))
		}
		return splitNames(buf[:n]), nil
	}
}

func getXattr(f *os.File, name string) ([]byte, error) {
	for {
		size, err := unix.Fgetxattr(int(f.Fd()), name, nil)
		if err != nil {
			return nil, xcperr.NewPath(xcperr.XattrUnsupported, f.Name(), fmt.Errorf("fgetxattr %q: %w", name, err))
		}
		if size == 0 {
			return nil, nil
		}

		buf := make([]byte, size)
		n, err := unix.Fgetxattr(int(f.Fd()), name, buf)
		if err == unix.ERANGE {
			continue
		}
		if err != nil {
			return nil, xcperr.NewPath(xcperr.XattrUnsupported, f.Name(), fmt.Errorf("fgetxattr %q: %w", name, err))
		}
		return buf[:n], nil
	}
}

func splitNames(buf []byte) []string {
	var names []string
	start := 0
	for i, b := range buf {
		if b == 0 {
			if i > start {
				names = append(names, string(buf[start:i]))
			}
			start = i + 1
		}
	}
	return names
}
