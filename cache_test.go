package storagefs_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/mem"
)

// countingStorage counts how many whole-file reads reach the backend.
type countingStorage struct {
	storagefs.Storage
	loads atomic.Int64
}

func (s *countingStorage) Root() (storagefs.Folder, error) {
	root, err := s.Storage.Root()
	if err != nil {
		return nil, err
	}
	return &countingFolder{folderEmbed: root, s: s}, nil
}

// folderEmbed aliases storagefs.Folder so countingFolder can embed the
// interface while declaring its own File method, mirroring the
// decorator idiom inside the storagefs package.
type folderEmbed = storagefs.Folder

type countingFolder struct {
	folderEmbed
	s *countingStorage
}

func (d *countingFolder) CreateFile(name string, mode storagefs.FileMode) (storagefs.File, error) {
	f, err := d.folderEmbed.CreateFile(name, mode)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, s: d.s}, nil
}

func (d *countingFolder) File(name string) (storagefs.File, error) {
	f, err := d.folderEmbed.File(name)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, s: d.s}, nil
}

type countingFile struct {
	storagefs.File
	s *countingStorage
}

func (f *countingFile) ReadAll() ([]byte, error) {
	f.s.loads.Add(1)
	return f.File.ReadAll()
}

func newCountedCache(t *testing.T, opts ...storagefs.CacheOption) (*storagefs.CachedStorage, *countingStorage) {
	t.Helper()

	counting := &countingStorage{Storage: mem.New()}
	cached := storagefs.NewCachedStorage(counting, opts...)
	require.NoError(t, cached.Mount())
	t.Cleanup(func() { _ = cached.Unmount() })

	return cached, counting
}

func writeFile(t *testing.T, s storagefs.Storage, path, content string) {
	t.Helper()

	root, err := s.Root()
	require.NoError(t, err)

	f, err := root.CreateFile(path, storagefs.ModeWrite)
	require.NoError(t, err)

	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestCacheServesRepeatReads(t *testing.T) {
	cached, counting := newCountedCache(t)
	writeFile(t, cached, "data.txt", "hello cache")

	root, err := cached.Root()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f, err := root.File("data.txt")
		require.NoError(t, err)
		require.NoError(t, f.Open(storagefs.ModeRead))

		data, err := f.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "hello cache", string(data))

		// A cache hit still leaves the position at the end.
		pos, err := f.Position()
		require.NoError(t, err)
		assert.Equal(t, int64(len("hello cache")), pos)

		require.NoError(t, f.Close())
	}

	assert.Equal(t, int64(1), counting.loads.Load())

	entries, bytes := cached.Stats()
	assert.Equal(t, 1, entries)
	assert.Equal(t, int64(len("hello cache")), bytes)
}

func TestCacheInvalidatedByWrite(t *testing.T) {
	cached, counting := newCountedCache(t)
	writeFile(t, cached, "data.txt", "v1")

	root, err := cached.Root()
	require.NoError(t, err)

	f, err := root.File("data.txt")
	require.NoError(t, err)
	require.NoError(t, f.Open(storagefs.ModeRead))

	data, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	require.NoError(t, f.Close())

	writeFile(t, cached, "data.txt", "v2")

	require.NoError(t, f.Open(storagefs.ModeRead))
	data, err = f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	require.NoError(t, f.Close())

	assert.Equal(t, int64(2), counting.loads.Load())
}

func TestCacheInvalidatedByRemove(t *testing.T) {
	cached, _ := newCountedCache(t)
	writeFile(t, cached, "data.txt", "doomed")

	root, err := cached.Root()
	require.NoError(t, err)

	f, err := root.File("data.txt")
	require.NoError(t, err)
	require.NoError(t, f.Open(storagefs.ModeRead))
	_, err = f.ReadAll()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, f.Remove())

	entries, _ := cached.Stats()
	assert.Zero(t, entries)
}

func TestCacheFolderRemoveDropsSubtree(t *testing.T) {
	cached, _ := newCountedCache(t)

	root, err := cached.Root()
	require.NoError(t, err)

	sub, err := root.CreateFolder("logs", false)
	require.NoError(t, err)

	writeFile(t, cached, "/logs/a.txt", "aaa")
	writeFile(t, cached, "/keep.txt", "keep")

	for _, path := range []string{"/logs/a.txt", "/keep.txt"} {
		f, err := root.File(path)
		require.NoError(t, err)
		require.NoError(t, f.Open(storagefs.ModeRead))
		_, err = f.ReadAll()
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	entries, _ := cached.Stats()
	require.Equal(t, 2, entries)

	require.NoError(t, sub.Remove(true))

	entries, _ = cached.Stats()
	assert.Equal(t, 1, entries)
}

func TestCacheRespectsMaxBytes(t *testing.T) {
	cached, _ := newCountedCache(t, storagefs.WithCacheMaxBytes(8))

	writeFile(t, cached, "big.txt", "this does not fit at all")
	writeFile(t, cached, "small.txt", "tiny")

	root, err := cached.Root()
	require.NoError(t, err)

	for _, name := range []string{"big.txt", "small.txt"} {
		f, err := root.File(name)
		require.NoError(t, err)
		require.NoError(t, f.Open(storagefs.ModeRead))
		_, err = f.ReadAll()
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	entries, bytes := cached.Stats()
	assert.Equal(t, 1, entries)
	assert.Equal(t, int64(len("tiny")), bytes)
}

func TestCacheConcurrentReadersSingleLoad(t *testing.T) {
	cached, counting := newCountedCache(t)
	writeFile(t, cached, "shared.txt", "shared content")

	root, err := cached.Root()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			f, err := root.File("shared.txt")
			if err != nil {
				t.Error(err)
				return
			}
			if err := f.Open(storagefs.ModeRead); err != nil {
				t.Error(err)
				return
			}
			defer f.Close()

			data, err := f.ReadAll()
			if err != nil {
				t.Error(err)
				return
			}
			if string(data) != "shared content" {
				t.Errorf("unexpected content %q", data)
			}
		}()
	}
	wg.Wait()

	// Concurrent first reads collapse into few backend loads; once the
	// entry is cached no further loads happen.
	assert.LessOrEqual(t, counting.loads.Load(), int64(8))

	before := counting.loads.Load()

	f, err := root.File("shared.txt")
	require.NoError(t, err)
	require.NoError(t, f.Open(storagefs.ModeRead))
	_, err = f.ReadAll()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, before, counting.loads.Load())
}

func TestCacheUnmountDropsEntries(t *testing.T) {
	cached, _ := newCountedCache(t)
	writeFile(t, cached, "data.txt", "content")

	root, err := cached.Root()
	require.NoError(t, err)

	f, err := root.File("data.txt")
	require.NoError(t, err)
	require.NoError(t, f.Open(storagefs.ModeRead))
	_, err = f.ReadAll()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, _ := cached.Stats()
	require.Equal(t, 1, entries)

	require.NoError(t, cached.Unmount())

	entries, bytes := cached.Stats()
	assert.Zero(t, entries)
	assert.Zero(t, bytes)
}
