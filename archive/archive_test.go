package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/mem"
)

func newRoot(t *testing.T) storagefs.Folder {
	t.Helper()

	s := mem.New()
	require.NoError(t, s.Mount())
	t.Cleanup(func() { _ = s.Unmount() })

	root, err := s.Root()
	require.NoError(t, err)
	return root
}

func putFile(t *testing.T, dir storagefs.Folder, name, content string) {
	t.Helper()

	f, err := dir.CreateFile(name, storagefs.ModeWrite)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func readFile(t *testing.T, dir storagefs.Folder, name string) string {
	t.Helper()

	f, err := dir.File(name)
	require.NoError(t, err)
	require.NoError(t, f.Open(storagefs.ModeRead))
	defer f.Close()

	s, err := f.ReadString()
	require.NoError(t, err)
	return s
}

// buildTree populates a small nested layout used by the round-trip
// tests: two root files, a folder with a file, a nested folder with a
// file, and an empty folder.
func buildTree(t *testing.T, root storagefs.Folder) {
	t.Helper()

	putFile(t, root, "readme.txt", "top level")
	putFile(t, root, "config.json", `{"version":1}`)

	logs, err := root.CreateFolder("logs", false)
	require.NoError(t, err)
	putFile(t, logs, "boot.log", "booted ok")

	deep, err := logs.CreateFolder("archive", false)
	require.NoError(t, err)
	putFile(t, deep, "old.log", "rotated")

	_, err = root.CreateFolder("empty", false)
	require.NoError(t, err)
}

func assertTree(t *testing.T, root storagefs.Folder) {
	t.Helper()

	assert.Equal(t, "top level", readFile(t, root, "readme.txt"))
	assert.Equal(t, `{"version":1}`, readFile(t, root, "config.json"))

	logs, err := root.Folder("logs")
	require.NoError(t, err)
	assert.Equal(t, "booted ok", readFile(t, logs, "boot.log"))

	deep, err := logs.Folder("archive")
	require.NoError(t, err)
	assert.Equal(t, "rotated", readFile(t, deep, "old.log"))

	empty, err := root.Folder("empty")
	require.NoError(t, err)
	n, err := empty.FileCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			src := newRoot(t)
			buildTree(t, src)

			var buf bytes.Buffer
			require.NoError(t, Pack(&buf, src, WithCompression(c)))

			dst := newRoot(t)
			require.NoError(t, Unpack(&buf, dst, WithCompression(c)))

			assertTree(t, dst)
		})
	}
}

func TestPackEmptyFolder(t *testing.T) {
	src := newRoot(t)

	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, src))

	dst := newRoot(t)
	require.NoError(t, Unpack(&buf, dst))

	files, err := dst.FileCount()
	require.NoError(t, err)
	assert.Zero(t, files)
}

func TestUnpackMergesIntoExistingTree(t *testing.T) {
	src := newRoot(t)
	buildTree(t, src)

	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, src))

	dst := newRoot(t)
	putFile(t, dst, "readme.txt", "will be replaced")
	putFile(t, dst, "keep.txt", "survives")
	logs, err := dst.CreateFolder("logs", false)
	require.NoError(t, err)
	putFile(t, logs, "extra.log", "survives too")

	require.NoError(t, Unpack(&buf, dst))

	assertTree(t, dst)
	assert.Equal(t, "survives", readFile(t, dst, "keep.txt"))
	assert.Equal(t, "survives too", readFile(t, logs, "extra.log"))
}

func TestUnpackCreatesMissingParents(t *testing.T) {
	// Archives from other tools may carry file entries without the
	// folder entries that precede them in our own output.
	var buf bytes.Buffer
	src := newRoot(t)
	deep, err := src.CreateFolder("a", false)
	require.NoError(t, err)
	deeper, err := deep.CreateFolder("b", false)
	require.NoError(t, err)
	putFile(t, deeper, "leaf.txt", "deep")
	require.NoError(t, Pack(&buf, src))

	dst := newRoot(t)
	require.NoError(t, Unpack(&buf, dst))

	a, err := dst.Folder("a")
	require.NoError(t, err)
	b, err := a.Folder("b")
	require.NoError(t, err)
	assert.Equal(t, "deep", readFile(t, b, "leaf.txt"))
}

func TestCompressionMismatch(t *testing.T) {
	src := newRoot(t)
	buildTree(t, src)

	var buf bytes.Buffer
	require.NoError(t, Pack(&buf, src, WithCompression(CompressionZstd)))

	dst := newRoot(t)
	err := Unpack(&buf, dst, WithCompression(CompressionNone))
	require.Error(t, err)
	assert.Equal(t, storagefs.CodeReadError, storagefs.CodeOf(err))
}

func TestUnsupportedCompression(t *testing.T) {
	var buf bytes.Buffer
	src := newRoot(t)

	err := Pack(&buf, src, WithCompression(CompressionType(99)))
	require.Error(t, err)
	assert.Equal(t, storagefs.CodeInvalidOperation, storagefs.CodeOf(err))
}

func TestZstdActuallyCompresses(t *testing.T) {
	src := newRoot(t)
	putFile(t, src, "zeros.bin", string(bytes.Repeat([]byte{0}, 64<<10)))

	var plain, compressed bytes.Buffer
	require.NoError(t, Pack(&plain, src))
	require.NoError(t, Pack(&compressed, src, WithCompression(CompressionZstd)))

	assert.Less(t, compressed.Len(), plain.Len()/10)
}
