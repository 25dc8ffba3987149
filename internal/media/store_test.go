package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AcquireGivesUniqueDirs(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "scratch"))
	require.NoError(t, err)

	a, err := st.Acquire("ad/../1")
	require.NoError(t, err)
	b, err := st.Acquire("ad/../1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir(), b.Dir())
	assert.Equal(t, st.Root(), filepath.Dir(a.Dir()), "job dir must stay inside the root")
	assert.NotEqual(t, a.NewPath(".mp4"), a.NewPath(".mp4"))
}

func TestScratch_DropAndRelease(t *testing.T) {
	root := t.TempDir()
	st, err := NewStore(root)
	require.NoError(t, err)
	s, err := st.Acquire("job")
	require.NoError(t, err)

	first := Asset{Path: s.NewPath(".src")}
	require.NoError(t, os.WriteFile(first.Path, []byte("x"), 0o644))
	second := Asset{Path: s.NewPath(".mp4")}
	require.NoError(t, os.WriteFile(second.Path, []byte("y"), 0o644))
	assert.Equal(t, 2, s.Live())

	s.Drop(first)
	assert.NoFileExists(t, first.Path)
	assert.Equal(t, 1, s.Live())

	outside := writeFile(t, root, "keep.txt", []byte("z"))
	s.Drop(Asset{Path: outside})
	assert.FileExists(t, outside)

	require.NoError(t, s.Release())
	assert.NoDirExists(t, s.Dir())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1) // only keep.txt
}

func TestPresets(t *testing.T) {
	for _, q := range []string{"medium", "high"} {
		p, ok := PresetFor(typesQuality(q))
		require.True(t, ok, q)
		assert.True(t, p.Valid(), "preset %s must define every numeric field", q)
	}
	_, ok := PresetFor(typesQuality("fast"))
	assert.False(t, ok, "fast never transcodes")
}
