//go:build !linux

package driver

import (
	"errors"
	"os"
)

func preallocate(f *os.File, length int64) error {
	return errors.New("fallocate not supported on this platform")
}
