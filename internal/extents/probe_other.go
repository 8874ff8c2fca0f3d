//go:build !linux

package extents

import "os"

// Supported reports whether this platform can probe holes at all.
func Supported() bool { return false }

// probe degrades to a single whole-file extent where the kernel offers no
// hole-seeking capability.
func probe(f *os.File, size int64) ([]Extent, error) {
	return []Extent{{Start: 0, End: size}}, nil
}
