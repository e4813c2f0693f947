package objfile

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/storagetest"
)

// fakeStore is a map-backed Store with the listing semantics of a real
// object store: flat keys, prefix queries, no directories.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, storagefs.NewError(storagefs.CodeFileNotFound, "no such key")
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *fakeStore) Upload(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = stored
	return nil
}

func (s *fakeStore) Head(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return 0, storagefs.NewError(storagefs.CodeFileNotFound, "no such key")
	}
	return int64(len(data)), nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return storagefs.NewError(storagefs.CodeFileNotFound, "no such key")
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) Copy(_ context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[srcKey]
	if !ok {
		return storagefs.NewError(storagefs.CodeFileNotFound, "no such key")
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[dstKey] = stored
	return nil
}

func (s *fakeStore) Children(_ context.Context, dirKey string) (files, dirs []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if dirKey != "" {
		prefix = dirKey + "/"
	}

	seen := make(map[string]bool)
	for key := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue // own marker
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name := rest[:idx]
			if !seen[name] {
				seen[name] = true
				dirs = append(dirs, name)
			}
			continue
		}
		files = append(files, rest)
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs, nil
}

func (s *fakeStore) Walk(_ context.Context, dirKey string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if dirKey != "" {
		prefix = dirKey + "/"
	}

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// fakeStorage adapts an FS to the Storage contract for the suite.
type fakeStorage struct {
	fs      *FS
	mounted bool
}

func (s *fakeStorage) Mount() error       { s.mounted = true; return nil }
func (s *fakeStorage) Unmount() error     { s.mounted = false; return nil }
func (s *fakeStorage) IsMounted() bool    { return s.mounted }
func (s *fakeStorage) MountPoint() string { return s.fs.mount }

func (s *fakeStorage) Info() (storagefs.StorageInfo, error) {
	if !s.mounted {
		return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return storagefs.StorageInfo{MountPoint: s.fs.mount, Type: "fake", Mounted: true}, nil
}

func (s *fakeStorage) Root() (storagefs.Folder, error) {
	if !s.mounted {
		return nil, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return s.fs.Root(), nil
}

func (s *fakeStorage) Format() error {
	return storagefs.NewError(storagefs.CodeInvalidOperation, "format not supported")
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storagefs.Storage {
		return &fakeStorage{fs: New(newFakeStore(), "/", nil, nil, nil)}
	})
}

func TestKeyMapping(t *testing.T) {
	fs := New(newFakeStore(), "/bucket-root", nil, nil, nil)

	assert.Equal(t, "", fs.key("/bucket-root"))
	assert.Equal(t, "a.txt", fs.key("/bucket-root/a.txt"))
	assert.Equal(t, "a/b/c.txt", fs.key("/bucket-root/a/b/c.txt"))
}

func TestDirtyBufferUploadedOnClose(t *testing.T) {
	store := newFakeStore()
	fs := New(store, "/", nil, nil, nil)

	f := fs.NewFile("/buffered.txt")
	require.NoError(t, f.Open(storagefs.ModeWrite))
	_, err := f.WriteString("queued")
	require.NoError(t, err)

	// Nothing uploaded yet.
	_, err = store.Head(context.Background(), "buffered.txt")
	require.Error(t, err)

	require.NoError(t, f.Close())

	size, err := store.Head(context.Background(), "buffered.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)
}

func TestTruncatingOpenCreatesObjectOnClose(t *testing.T) {
	store := newFakeStore()
	fs := New(store, "/", nil, nil, nil)

	f := fs.NewFile("/empty.txt")
	require.NoError(t, f.Open(storagefs.ModeWrite))
	require.NoError(t, f.Close())

	size, err := store.Head(context.Background(), "empty.txt")
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestFolderMarkerPinsEmptyFolder(t *testing.T) {
	store := newFakeStore()
	fs := New(store, "/", nil, nil, nil)

	root := fs.Root()
	sub, err := root.CreateFolder("pin", false)
	require.NoError(t, err)
	assert.True(t, sub.Exists())

	_, err = store.Head(context.Background(), "pin/")
	require.NoError(t, err)
}

func TestImplicitFolderWithoutMarker(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Upload(context.Background(), "implied/x.txt", []byte("x")))

	fs := New(store, "/", nil, nil, nil)
	sub, err := fs.Root().Folder("implied")
	require.NoError(t, err)
	assert.True(t, sub.Exists())

	count, err := sub.FileCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
