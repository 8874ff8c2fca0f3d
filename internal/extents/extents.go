// Package extents discovers the allocated regions of a sparse file so the
// copy can move only real data and leave the holes as holes.
package extents

import (
	"os"
)

// Extent is a half-open [Start, End) run of allocated bytes.
type Extent struct {
	Start int64
	End   int64
}

// Length returns the byte count covered by the extent.
func (e Extent) Length() int64 {
	return e.End - e.Start
}

// Of returns the allocated extents of f in ascending offset order, merged.
// On filesystems without hole-probing support it degrades to a single
// extent spanning the whole file.
func Of(f *os.File) ([]Extent, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return nil, nil
	}

	exts, err := probe(f, size)
	if err != nil {
		return nil, err
	}
	return Merge(exts), nil
}

// Merge coalesces a sorted extent sequence, joining runs that touch or
// sit one byte apart, and returns a sorted, non-overlapping, non-adjacent
// sequence covering every input byte position plus each one-byte gap it
// absorbed. It is idempotent.
func Merge(exts []Extent) []Extent {
	if len(exts) == 0 {
		return nil
	}

	merged := make([]Extent, 0, len(exts))
	cur := exts[0]
	for _, e := range exts[1:] {
		if e.Start <= cur.End+1 {
			if e.End > cur.End {
				cur.End = e.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = e
	}
	return append(merged, cur)
}
