//go:build linux

package driver

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves blocks for [0, length) without changing the file
// size, so a later short write cannot fail on a full disk mid-copy.
func preallocate(f *os.File, length int64) error {
	for {
		err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, length)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}
