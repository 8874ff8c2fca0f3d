//go:build linux

package bytemover

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/vexxhost/pcp/internal/xcperr"
)

// cloneFile reflinks the whole of src into dst via FICLONE. Kernels and
// filesystems without clone support surface as errUnsupported.
func cloneFile(src, dst *os.File) error {
	for {
		err := unix.IoctlFileClone(int(dst.Fd()), int(src.Fd()))
		switch err {
		case nil:
			return nil
		case unix.EINTR:
			continue
		case unix.ENOSYS, unix.ENOTTY, unix.EOPNOTSUPP, unix.EINVAL, unix.EXDEV, unix.EBADF:
			return fmt.Errorf("%w: FICLONE: %v", errUnsupported, err)
		default:
			return fmt.Errorf("FICLONE: %w", err)
		}
	}
}

// copyRangeKernel moves length bytes with copy_file_range(2), which copies
// between the descriptors inside the kernel. Explicit offsets keep the
// descriptors' seek positions untouched so concurrent workers can share
// them.
func copyRangeKernel(src, dst *os.File, length, offset int64) (int64, error) {
	var copied int64
	roff, woff := offset, offset

	for copied < length {
		remain := length - copied
		n, err := unix.CopyFileRange(int(src.Fd()), &roff, int(dst.Fd()), &woff, int(remain), 0)
		if err != nil {
			switch err {
			case unix.EINTR, unix.EAGAIN:
				continue
			case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.EOPNOTSUPP, unix.EBADF:
				if copied == 0 {
					return 0, fmt.Errorf("%w: copy_file_range: %v", errUnsupported, err)
				}
				// Mid-range refusal: finish the rest in user space
				// rather than restarting the whole range.
				return copied, fmt.Errorf("%w: copy_file_range after %d bytes: %v", errUnsupported, copied, err)
			default:
				return copied, xcperr.NewPath(xcperr.IO, src.Name(), fmt.Errorf("copy_file_range at %d: %w", roff, err))
			}
		}
		if n == 0 {
			return copied, xcperr.NewPath(xcperr.UnexpectedEOF, src.Name(),
				fmt.Errorf("source ended at %d, expected %d more bytes", roff, remain))
		}
		copied += int64(n)
	}
	return copied, nil
}

func pread(f *os.File, buf []byte, offset int64) (int, error) {
	for {
		n, err := unix.Pread(int(f.Fd()), buf, offset)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		return n, err
	}
}

func pwrite(f *os.File, buf []byte, offset int64) (int, error) {
	for {
		n, err := unix.Pwrite(int(f.Fd()), buf, offset)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		return n, err
	}
}
