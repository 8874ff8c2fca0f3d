//go:build !linux

package bytemover

import (
	"fmt"
	"io"
	"os"
)

// Non-Linux platforms have no clone or in-kernel range copy exposed here;
// every range takes the user-space rung.

func cloneFile(src, dst *os.File) error {
	return fmt.Errorf("%w: no clone primitive on this platform", errUnsupported)
}

func copyRangeKernel(src, dst *os.File, length, offset int64) (int64, error) {
	return 0, fmt.Errorf("%w: no in-kernel range copy on this platform", errUnsupported)
}

func pread(f *os.File, buf []byte, offset int64) (int, error) {
	n, err := f.ReadAt(buf, offset)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func pwrite(f *os.File, buf []byte, offset int64) (int, error) {
	return f.WriteAt(buf, offset)
}
