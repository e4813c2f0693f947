package fs

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	// Test Mkdir
	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.Mkdir(dir, 0755))

	// Test OpenFile (Create)
	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	// Write
	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)

	// Sync
	assert.NoError(t, f.Sync())

	// Stat via File
	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	assert.NoError(t, f.Close())

	// Stat via FS
	info2, err := lfs.Stat(fpath)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), info2.Size())

	// ReadDir
	entries, err := lfs.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	// Rename
	newPath := filepath.Join(dir, "renamed.txt")
	assert.NoError(t, lfs.Rename(fpath, newPath))

	// Remove
	assert.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.Error(t, err)
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("limited", Fault{FailAfterBytes: 4, Err: syscall.ENOSPC})

	f, err := ffs.OpenFile(filepath.Join(tmp, "limited.bin"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("123456"))
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, syscall.ENOSPC)
}

func TestFaultyFS_SyncAndClose(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("bad", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true, Err: syscall.EIO})

	f, err := ffs.OpenFile(filepath.Join(tmp, "bad.bin"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	assert.ErrorIs(t, f.Sync(), syscall.EIO)
	assert.ErrorIs(t, f.Close(), syscall.EIO)
}

func TestFaultyFS_RemoveAndReadDir(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("stuck", Fault{FailAfterBytes: -1, FailOnRemove: true, FailOnReadDir: true, Err: syscall.EIO})

	dir := filepath.Join(tmp, "stuck")
	require.NoError(t, os.Mkdir(dir, 0755))

	assert.ErrorIs(t, ffs.Remove(dir), syscall.EIO)
	_, err := ffs.ReadDir(dir)
	assert.ErrorIs(t, err, syscall.EIO)

	// Untouched paths pass through.
	other := filepath.Join(tmp, "ok")
	require.NoError(t, os.Mkdir(other, 0755))
	entries, err := ffs.ReadDir(tmp)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
