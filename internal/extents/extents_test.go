package extents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		in   []Extent
		want []Extent
	}{
		{"empty", nil, nil},
		{"single", []Extent{{0, 1}}, []Extent{{0, 1}}},
		{"one-byte gap merges", []Extent{{0, 10}, {11, 20}}, []Extent{{0, 20}}},
		{"touching merges", []Extent{{0, 10}, {10, 20}}, []Extent{{0, 20}}},
		{
			"mixed gaps",
			[]Extent{{0, 5}, {11, 20}, {21, 30}, {40, 50}},
			[]Extent{{0, 5}, {11, 30}, {40, 50}},
		},
		{
			"chain collapses",
			[]Extent{{0, 10}, {11, 20}, {21, 30}, {31, 50}, {51, 60}},
			[]Extent{{0, 60}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.in))
		})
	}
}

func TestMergeIdempotent(t *testing.T) {
	in := []Extent{{0, 5}, {11, 20}, {21, 30}, {40, 50}}
	once := Merge(in)
	assert.Equal(t, once, Merge(once))
}

func TestMergePreservesBytes(t *testing.T) {
	in := []Extent{{0, 10}, {11, 20}, {30, 40}}
	var inBytes, outBytes int64
	for _, e := range in {
		inBytes += e.Length()
	}
	out := Merge(in)
	for _, e := range out {
		outBytes += e.Length()
	}
	// The one-byte adjacency rule absorbs the [10,11) gap.
	assert.Equal(t, inBytes+1, outBytes)

	for i := 1; i < len(out); i++ {
		assert.Greater(t, out[i].Start, out[i-1].End+1, "extents must not be adjacent after merging")
	}
}

func TestOfCoversWrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	content := make([]byte, 64*1024)
	for i := range content {
		content[i] = 0x58
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	exts, err := Of(f)
	require.NoError(t, err)
	require.NotEmpty(t, exts)

	var covered int64
	last := int64(-2)
	for _, e := range exts {
		assert.Less(t, e.Start, e.End)
		assert.Greater(t, e.Start, last+1)
		assert.LessOrEqual(t, e.End, int64(len(content)))
		covered += e.Length()
		last = e.End
	}
	assert.Equal(t, int64(len(content)), covered, "a fully written file has no holes")
}

func TestOfEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	exts, err := Of(f)
	require.NoError(t, err)
	assert.Empty(t, exts)
}
