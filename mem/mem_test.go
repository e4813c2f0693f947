package mem

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagefs.Storage {
		return New()
	})
}

func mountedRoot(t *testing.T, st *Storage) storagefs.Folder {
	t.Helper()
	require.NoError(t, st.Mount())
	root, err := st.Root()
	require.NoError(t, err)
	return root
}

func TestCapacityLimit(t *testing.T) {
	st := New(WithCapacity(8))
	root := mountedRoot(t, st)

	f, err := root.CreateFile("big.bin", storagefs.ModeWrite)
	require.NoError(t, err)

	// Writes past capacity are accepted partially, by count.
	n, err := f.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	// No room at all: the condition surfaces as an error.
	_, err = f.Write([]byte("x"))
	require.ErrorIs(t, err, storagefs.ErrStorageFull)

	// Overwriting in place charges nothing.
	require.NoError(t, f.Seek(0))
	n, err = f.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCapacityFreedByTruncateAndRemove(t *testing.T) {
	st := New(WithCapacity(8))
	root := mountedRoot(t, st)

	f, err := root.CreateFile("a.bin", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.Write([]byte("12345678"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Reopening for write truncates and releases the charge.
	require.NoError(t, f.Open(storagefs.ModeWrite))
	n, err := f.Write([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, f.Close())

	require.NoError(t, f.Remove())

	info, err := st.Info()
	require.NoError(t, err)
	assert.Zero(t, info.UsedBytes)
	assert.Equal(t, uint64(8), info.AvailableBytes)
}

func TestFormatResetsTree(t *testing.T) {
	st := New()
	root := mountedRoot(t, st)

	sub, err := root.CreateFolder("data", false)
	require.NoError(t, err)
	f, err := sub.CreateFile("x.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("payload")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, st.Format())

	_, err = root.Folder("data")
	require.ErrorIs(t, err, storagefs.ErrFolderNotFound)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Zero(t, info.UsedBytes)
}

func TestInfo(t *testing.T) {
	st := New(WithCapacity(1024), WithMountPoint("/ram"))
	require.NoError(t, st.Mount())

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, "/ram", info.MountPoint)
	assert.Equal(t, "mem", info.Type)
	assert.Equal(t, uint64(1024), info.TotalBytes)
	assert.True(t, info.Mounted)
}

func TestOpenDirectoryAsFile(t *testing.T) {
	st := New()
	root := mountedRoot(t, st)

	_, err := root.CreateFolder("d", false)
	require.NoError(t, err)

	f := st.NewFile("/d")
	err = f.Open(storagefs.ModeWrite)
	require.ErrorIs(t, err, storagefs.ErrOpenError)
}

func TestOpenWithoutParent(t *testing.T) {
	st := New()
	require.NoError(t, st.Mount())

	f := st.NewFile("/no/such/parent.txt")
	err := f.Open(storagefs.ModeWrite)
	require.ErrorIs(t, err, storagefs.ErrFileNotFound)
}

func TestRenameOntoDirectory(t *testing.T) {
	st := New()
	root := mountedRoot(t, st)

	_, err := root.CreateFolder("target", false)
	require.NoError(t, err)
	f, err := root.CreateFile("src.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = f.Rename("/target")
	require.ErrorIs(t, err, storagefs.ErrInvalidOperation)
}

func TestRenameReplacesFile(t *testing.T) {
	st := New()
	root := mountedRoot(t, st)

	old, err := root.CreateFile("old.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = old.WriteString("winner")
	require.NoError(t, err)
	require.NoError(t, old.Close())

	loser, err := root.CreateFile("existing.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = loser.WriteString("previous contents")
	require.NoError(t, err)
	require.NoError(t, loser.Close())

	require.NoError(t, old.Rename("/existing.txt"))

	got, err := root.File("existing.txt")
	require.NoError(t, err)
	require.NoError(t, got.Open(storagefs.ModeRead))
	s, err := got.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "winner", s)
	require.NoError(t, got.Close())

	count, err := root.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentWriters(t *testing.T) {
	st := New()
	root := mountedRoot(t, st)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("w%d.txt", i)
			f, err := root.CreateFile(name, storagefs.ModeWrite)
			assert.NoError(t, err)
			_, err = f.WriteString("data")
			assert.NoError(t, err)
			assert.NoError(t, f.Close())
		}(i)
	}
	wg.Wait()

	count, err := root.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}
