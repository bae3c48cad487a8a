package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	data, err := lfs.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "renamed.txt")
	require.NoError(t, lfs.Rename(fpath, newPath))
	require.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "a", "b", "record.rec")

	require.NoError(t, WriteFileAtomic(Default, target, []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(Default, target, []byte("v2"), 0o644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestWriteFileAtomic_Faults(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{"Write", Fault{FailAfterBytes: 1}},
		{"Sync", Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"Rename", Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			ffs := NewFaultyFS(nil)
			ffs.AddRule(tmp, tt.fault)

			target := filepath.Join(tmp, "record.rec")
			err := WriteFileAtomic(ffs, target, []byte("payload"), 0o644)
			require.ErrorIs(t, err, ErrInjected)

			_, err = os.Stat(target)
			assert.True(t, os.IsNotExist(err))

			entries, err := os.ReadDir(tmp)
			require.NoError(t, err)
			assert.Empty(t, entries, "no temp file is left behind")
		})
	}
}

func TestFaultyFS_Remove(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	fpath := filepath.Join(tmp, "keep.txt")
	require.NoError(t, os.WriteFile(fpath, []byte("x"), 0o644))

	ffs.AddRule("keep", Fault{FailAfterBytes: -1, FailOnRemove: true})
	require.ErrorIs(t, ffs.Remove(fpath), ErrInjected)

	ffs.ClearRules()
	require.NoError(t, ffs.Remove(fpath))
}

func TestFaultyFS_Written(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)

	f, err := ffs.OpenFile(filepath.Join(tmp, "w.txt"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, int64(5), ffs.Written())
}
