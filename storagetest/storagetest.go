// Package storagetest provides a conformance test suite for storagefs
// backend implementations.
//
// Backend packages import it and run the full battery against a fresh
// storage per subtest:
//
//	func TestConformance(t *testing.T) {
//	    storagetest.Run(t, func(t *testing.T) storagefs.Storage {
//	        return mem.New()
//	    })
//	}
//
// The suite validates the contract, not backend-specific behavior:
// error codes from the closed taxonomy, idempotency rules, implicit
// close semantics, enumeration and recursive delete.
package storagetest

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
)

// Factory returns a fresh, empty, unmounted Storage. The suite mounts
// it and creates whatever state each subtest needs.
type Factory func(t *testing.T) storagefs.Storage

// Run executes the full conformance suite.
func Run(t *testing.T, newStorage Factory) {
	t.Run("MountLifecycle", func(t *testing.T) { testMountLifecycle(t, newStorage) })
	t.Run("WriteReadRoundTrip", func(t *testing.T) { testWriteReadRoundTrip(t, newStorage) })
	t.Run("CloseIdempotent", func(t *testing.T) { testCloseIdempotent(t, newStorage) })
	t.Run("ReadByteAndEOF", func(t *testing.T) { testReadByteAndEOF(t, newStorage) })
	t.Run("ReadAllEmptyFile", func(t *testing.T) { testReadAllEmptyFile(t, newStorage) })
	t.Run("SeekPositionAvailable", func(t *testing.T) { testSeekPositionAvailable(t, newStorage) })
	t.Run("AppendMode", func(t *testing.T) { testAppendMode(t, newStorage) })
	t.Run("ChangeModeResetsPosition", func(t *testing.T) { testChangeModeResetsPosition(t, newStorage) })
	t.Run("OpenMissingForRead", func(t *testing.T) { testOpenMissingForRead(t, newStorage) })
	t.Run("FileExistsClassification", func(t *testing.T) { testFileExistsClassification(t, newStorage) })
	t.Run("RenameOpenFile", func(t *testing.T) { testRenameOpenFile(t, newStorage) })
	t.Run("RemoveFile", func(t *testing.T) { testRemoveFile(t, newStorage) })
	t.Run("FolderCreateIdempotent", func(t *testing.T) { testFolderCreateIdempotent(t, newStorage) })
	t.Run("CreateFolderTwice", func(t *testing.T) { testCreateFolderTwice(t, newStorage) })
	t.Run("GetMissingChildren", func(t *testing.T) { testGetMissingChildren(t, newStorage) })
	t.Run("EnumerationAndCounts", func(t *testing.T) { testEnumerationAndCounts(t, newStorage) })
	t.Run("RemoveNonRecursiveNonEmpty", func(t *testing.T) { testRemoveNonRecursiveNonEmpty(t, newStorage) })
	t.Run("RemoveRecursive", func(t *testing.T) { testRemoveRecursive(t, newStorage) })
	t.Run("ParentFolderPathMath", func(t *testing.T) { testParentFolderPathMath(t, newStorage) })
	t.Run("CreateWriteReadScenario", func(t *testing.T) { testCreateWriteReadScenario(t, newStorage) })
}

func mustRoot(t *testing.T, newStorage Factory) storagefs.Folder {
	t.Helper()

	st := newStorage(t)
	require.NoError(t, st.Mount())

	root, err := st.Root()
	require.NoError(t, err)
	return root
}

func testMountLifecycle(t *testing.T, newStorage Factory) {
	st := newStorage(t)

	assert.False(t, st.IsMounted())

	_, err := st.Root()
	require.ErrorIs(t, err, storagefs.ErrStorageNotMounted)
	_, err = st.Info()
	require.ErrorIs(t, err, storagefs.ErrStorageNotMounted)

	require.NoError(t, st.Mount())
	assert.True(t, st.IsMounted())

	// Mounting twice is a no-op success.
	require.NoError(t, st.Mount())

	root, err := st.Root()
	require.NoError(t, err)
	assert.True(t, root.Exists())

	require.NoError(t, st.Unmount())
	assert.False(t, st.IsMounted())
}

func testWriteReadRoundTrip(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)
	payload := []byte("the quick brown fox")

	f, err := root.CreateFile("round.bin", storagefs.ModeWrite)
	require.NoError(t, err)
	require.True(t, f.IsOpen())

	n, err := f.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, f.Close())

	require.NoError(t, f.Open(storagefs.ModeRead))
	got, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, f.Close())
}

func testCloseIdempotent(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("close.txt", storagefs.ModeWrite)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.False(t, f.IsOpen())
}

func testReadByteAndEOF(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("bytes.bin", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.Write([]byte{0x00, 0xFF})
	require.NoError(t, err)
	require.NoError(t, f.ChangeMode(storagefs.ModeRead))

	b, err := f.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), b)

	b, err = f.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), b)

	// End of stream is an error, never an ambiguous value.
	_, err = f.ReadByte()
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, f.Close())
}

func testReadAllEmptyFile(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("empty.txt", storagefs.ModeWrite)
	require.NoError(t, err)

	got, err := f.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)

	s, err := f.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	require.NoError(t, f.Close())
}

func testSeekPositionAvailable(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("seek.bin", storagefs.ModeReadWriteCreate)
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, f.Seek(4))
	pos, err := f.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	avail, err := f.Available()
	require.NoError(t, err)
	assert.Equal(t, int64(6), avail)

	// Position past the end clamps availability to zero, never
	// negative.
	require.NoError(t, f.Seek(32))
	avail, err = f.Available()
	require.NoError(t, err)
	assert.Equal(t, int64(0), avail)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	require.NoError(t, f.Close())
}

func testAppendMode(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("log.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("one")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, f.Open(storagefs.ModeAppend))
	_, err = f.WriteString("two")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, f.Open(storagefs.ModeRead))
	s, err := f.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "onetwo", s)
	require.NoError(t, f.Close())
}

func testChangeModeResetsPosition(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("mode.bin", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdef"))
	require.NoError(t, err)

	require.NoError(t, f.ChangeMode(storagefs.ModeRead))
	pos, err := f.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	require.NoError(t, f.Close())

	// ChangeMode on a closed file is an invalid operation.
	err = f.ChangeMode(storagefs.ModeWrite)
	require.ErrorIs(t, err, storagefs.ErrInvalidOperation)
}

func testOpenMissingForRead(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	_, err := root.CreateFile("missing.txt", storagefs.ModeRead)
	require.Error(t, err)
	assert.Equal(t, storagefs.CodeFileNotFound, storagefs.CodeOf(err))
}

func testFileExistsClassification(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	_, err := root.CreateFolder("shadow", false)
	require.NoError(t, err)

	// A same-named directory is not a file.
	_, err = root.File("shadow")
	require.ErrorIs(t, err, storagefs.ErrFileNotFound)
}

func testRenameOpenFile(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("old.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("payload")
	require.NoError(t, err)

	newPath, err := storagefs.JoinPath(root.Path(), "new.txt")
	require.NoError(t, err)

	// Rename while open: implicit close first, then rebind.
	require.NoError(t, f.Rename(newPath))
	assert.False(t, f.IsOpen())
	assert.Equal(t, newPath, f.Path())
	assert.Equal(t, "new.txt", f.Name())

	// A pathless reopen addresses the new location.
	require.NoError(t, f.Open(storagefs.ModeRead))
	s, err := f.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "payload", s)
	require.NoError(t, f.Close())

	_, err = root.File("old.txt")
	require.ErrorIs(t, err, storagefs.ErrFileNotFound)
}

func testRemoveFile(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("victim.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("data")
	require.NoError(t, err)

	// Remove closes implicitly.
	require.NoError(t, f.Remove())
	assert.False(t, f.IsOpen())
	assert.False(t, f.Exists())
}

func testFolderCreateIdempotent(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	sub, err := root.CreateFolder("twice", false)
	require.NoError(t, err)

	// Backend "already exists" is success, mirroring single-level
	// mkdir -p semantics.
	require.NoError(t, sub.Create())
	assert.True(t, sub.Exists())
}

func testCreateFolderTwice(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	first, err := root.CreateFolder("dup", false)
	require.NoError(t, err)

	f, err := first.CreateFile("keep.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("keep me")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	second, err := root.CreateFolder("dup", false)
	require.ErrorIs(t, err, storagefs.ErrAlreadyExists)
	require.NotNil(t, second)
	assert.Equal(t, first.Path(), second.Path())

	// The first call's contents survived.
	kept, err := second.File("keep.txt")
	require.NoError(t, err)
	require.NoError(t, kept.Open(storagefs.ModeRead))
	s, err := kept.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "keep me", s)
	require.NoError(t, kept.Close())
}

func testGetMissingChildren(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	_, err := root.Folder("missing")
	require.ErrorIs(t, err, storagefs.ErrFolderNotFound)

	_, err = root.File("missing.txt")
	require.ErrorIs(t, err, storagefs.ErrFileNotFound)
}

func testEnumerationAndCounts(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		f, err := root.CreateFile(name, storagefs.ModeWrite)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	for _, name := range []string{"d1", "d2"} {
		_, err := root.CreateFolder(name, false)
		require.NoError(t, err)
	}

	files, err := root.Files()
	require.NoError(t, err)
	assert.Len(t, files, 3)

	folders, err := root.Folders()
	require.NoError(t, err)
	assert.Len(t, folders, 2)

	fileCount, err := root.FileCount()
	require.NoError(t, err)
	assert.Equal(t, len(files), fileCount)

	folderCount, err := root.FolderCount()
	require.NoError(t, err)
	assert.Equal(t, len(folders), folderCount)

	// Enumeration is immediate children only.
	nested, err := folders[0].CreateFile("inner.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	require.NoError(t, nested.Close())

	fileCount, err = root.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 3, fileCount)
}

func testRemoveNonRecursiveNonEmpty(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	sub, err := root.CreateFolder("full", false)
	require.NoError(t, err)
	f, err := sub.CreateFile("content.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("still here")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = sub.Remove(false)
	require.ErrorIs(t, err, storagefs.ErrInvalidOperation)

	// Directory and contents untouched.
	assert.True(t, sub.Exists())
	kept, err := sub.File("content.txt")
	require.NoError(t, err)
	require.NoError(t, kept.Open(storagefs.ModeRead))
	s, err := kept.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "still here", s)
	require.NoError(t, kept.Close())
}

func testRemoveRecursive(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	top, err := root.CreateFolder("tree", false)
	require.NoError(t, err)

	// Arbitrarily nested contents.
	level := top
	for i := 0; i < 3; i++ {
		f, err := level.CreateFile("data.bin", storagefs.ModeWrite)
		require.NoError(t, err)
		_, err = f.Write([]byte{1, 2, 3})
		require.NoError(t, err)
		require.NoError(t, f.Close())

		level, err = level.CreateFolder("deeper", false)
		require.NoError(t, err)
	}

	require.NoError(t, top.Remove(true))
	assert.False(t, top.Exists())

	_, err = root.Folder("tree")
	require.ErrorIs(t, err, storagefs.ErrFolderNotFound)
}

func testParentFolderPathMath(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	sub, err := root.CreateFolder("child", false)
	require.NoError(t, err)

	parent := sub.Parent()
	assert.Equal(t, root.Path(), parent.Path())

	// Parent derivation is pure path math, never backend-verified: a
	// handle below a missing path still yields a parent handle.
	phantom := parent.Parent()
	require.NotNil(t, phantom)
}

func testCreateWriteReadScenario(t *testing.T, newStorage Factory) {
	root := mustRoot(t, newStorage)

	f, err := root.CreateFile("a.txt", storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString("hi")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := root.File("a.txt")
	require.NoError(t, err)
	require.NoError(t, got.Open(storagefs.ModeRead))
	s, err := got.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	require.NoError(t, got.Close())
}
