package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		name string
		id   int64
		ok   bool
	}{
		{"note_1.json", 1, true},
		{"note_1024.json", 1024, true},
		{"note_0.json", 0, false},
		{"note_-3.json", 0, false},
		{"note_x.json", 0, false},
		{"note_1.md", 0, false},
		{"other_1.json", 0, false},
	}
	for _, tc := range cases {
		id, ok := parseID(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.id, id, tc.name)
	}
}

func TestMaxID(t *testing.T) {
	dir := t.TempDir()

	highest, err := MaxID(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(0), highest)

	for _, name := range []string{"note_2.json", "note_10.json", "note_9.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}

	highest, err = MaxID(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(10), highest)
}

func TestMaxID_MissingDirectory(t *testing.T) {
	highest, err := MaxID(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), highest)
}

func TestWriteFileAtomic(t *testing.T) {
	t.Run("Overwrites Existing File", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "record.json")
		require.NoError(t, os.WriteFile(filename, []byte("initial"), 0644))

		require.NoError(t, WriteFileAtomic(filename, []byte("replaced"), 0644))

		got, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, "replaced", string(got))
	})

	t.Run("Leaves No Temp Files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteFileAtomic(filepath.Join(dir, "a.json"), []byte("a"), 0644))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a.json", entries[0].Name())
	})

	t.Run("Fails If Directory Missing", func(t *testing.T) {
		err := WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "a.json"), []byte("a"), 0644)
		assert.Error(t, err)
	})
}
