package storagefs

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachedStorage wraps a Storage with a read-through whole-file content
// cache. ReadAll and ReadString on files drawn from it are served from
// memory after the first load; concurrent first loads of the same path
// are collapsed into a single backend read.
//
// Writes, removes, renames and truncating opens invalidate the
// affected paths. Mutations performed through a different handle on
// the same backend are invisible to the cache.
type CachedStorage struct {
	inner    Storage
	maxBytes int64

	mu       sync.Mutex
	entries  map[string][]byte
	curBytes int64
	group    singleflight.Group
}

var _ Storage = (*CachedStorage)(nil)

// CacheOption configures a CachedStorage.
type CacheOption func(*CachedStorage)

// WithCacheMaxBytes caps the total cached content size. Defaults to
// 8 MiB. Files larger than the cap are never cached.
func WithCacheMaxBytes(n int64) CacheOption {
	return func(c *CachedStorage) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewCachedStorage creates a caching wrapper around inner.
func NewCachedStorage(inner Storage, opts ...CacheOption) *CachedStorage {
	c := &CachedStorage{
		inner:    inner,
		maxBytes: 8 << 20,
		entries:  make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedStorage) Mount() error { return c.inner.Mount() }

// Unmount drops the cache along with the mount.
func (c *CachedStorage) Unmount() error {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.curBytes = 0
	c.mu.Unlock()
	return c.inner.Unmount()
}

func (c *CachedStorage) IsMounted() bool { return c.inner.IsMounted() }

func (c *CachedStorage) MountPoint() string { return c.inner.MountPoint() }

func (c *CachedStorage) Info() (StorageInfo, error) { return c.inner.Info() }

func (c *CachedStorage) Root() (Folder, error) {
	root, err := c.inner.Root()
	if err != nil {
		return nil, err
	}
	return &cachedFolder{folderEmbed: root, c: c}, nil
}

// Format discards everything, cache included.
func (c *CachedStorage) Format() error {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.curBytes = 0
	c.mu.Unlock()
	return c.inner.Format()
}

// Stats reports the cache fill level.
func (c *CachedStorage) Stats() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.curBytes
}

func (c *CachedStorage) lookup(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[path]
	return data, ok
}

// store inserts a copy of data, evicting arbitrary entries until it
// fits. Oversized payloads are not cached at all.
func (c *CachedStorage) store(path string, data []byte) {
	size := int64(len(data))
	if size > c.maxBytes {
		return
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[path]; ok {
		c.curBytes -= int64(len(old))
	}
	for c.curBytes+size > c.maxBytes {
		for victim, v := range c.entries {
			delete(c.entries, victim)
			c.curBytes -= int64(len(v))
			break
		}
	}
	c.entries[path] = stored
	c.curBytes += size
}

func (c *CachedStorage) invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[path]; ok {
		delete(c.entries, path)
		c.curBytes -= int64(len(old))
	}
}

// invalidateTree drops path and everything below it. Used for folder
// removes and renames.
func (c *CachedStorage) invalidateTree(path string) {
	prefix := path
	if !strings.HasSuffix(prefix, Separator) {
		prefix += Separator
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for p, v := range c.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(c.entries, p)
			c.curBytes -= int64(len(v))
		}
	}
}

// cachedFolder wraps children so files drawn through it participate in
// the cache. Unlisted methods delegate unchanged.
type cachedFolder struct {
	folderEmbed
	c *CachedStorage
}

func (d *cachedFolder) Remove(recursive bool) error {
	err := d.folderEmbed.Remove(recursive)
	if err == nil {
		d.c.invalidateTree(d.folderEmbed.Path())
	}
	return err
}

func (d *cachedFolder) Rename(newPath string) error {
	old := d.folderEmbed.Path()
	err := d.folderEmbed.Rename(newPath)
	if err == nil {
		d.c.invalidateTree(old)
	}
	return err
}

func (d *cachedFolder) CreateFile(name string, mode FileMode) (File, error) {
	f, err := d.folderEmbed.CreateFile(name, mode)
	if err != nil {
		return nil, err
	}
	if mode.Truncates() {
		d.c.invalidate(f.Path())
	}
	return &cachedFile{File: f, c: d.c}, nil
}

func (d *cachedFolder) File(name string) (File, error) {
	f, err := d.folderEmbed.File(name)
	if err != nil {
		return nil, err
	}
	return &cachedFile{File: f, c: d.c}, nil
}

func (d *cachedFolder) CreateFolder(name string, overwrite bool) (Folder, error) {
	sub, err := d.folderEmbed.CreateFolder(name, overwrite)
	if sub != nil {
		if overwrite {
			d.c.invalidateTree(sub.Path())
		}
		sub = &cachedFolder{folderEmbed: sub, c: d.c}
	}
	return sub, err
}

func (d *cachedFolder) Folder(name string) (Folder, error) {
	sub, err := d.folderEmbed.Folder(name)
	if err != nil {
		return nil, err
	}
	return &cachedFolder{folderEmbed: sub, c: d.c}, nil
}

func (d *cachedFolder) Files() ([]File, error) {
	files, err := d.folderEmbed.Files()
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		files[i] = &cachedFile{File: f, c: d.c}
	}
	return files, nil
}

func (d *cachedFolder) Folders() ([]Folder, error) {
	folders, err := d.folderEmbed.Folders()
	if err != nil {
		return nil, err
	}
	for i, sub := range folders {
		folders[i] = &cachedFolder{folderEmbed: sub, c: d.c}
	}
	return folders, nil
}

func (d *cachedFolder) Parent() Folder {
	return &cachedFolder{folderEmbed: d.folderEmbed.Parent(), c: d.c}
}

// cachedFile serves whole-file reads from the cache and invalidates on
// mutation. Incremental reads are uncached: position bookkeeping stays
// with the backend.
type cachedFile struct {
	File
	c *CachedStorage
}

func (f *cachedFile) Open(mode FileMode) error {
	if mode.Truncates() {
		f.c.invalidate(f.File.Path())
	}
	return f.File.Open(mode)
}

func (f *cachedFile) OpenPath(path string, mode FileMode) error {
	if mode.Truncates() {
		f.c.invalidate(CleanPath(path))
	}
	return f.File.OpenPath(path, mode)
}

func (f *cachedFile) ReadAll() ([]byte, error) {
	path := f.File.Path()

	if data, ok := f.c.lookup(path); ok {
		// Keep the backend position in step with a real full read.
		if err := f.File.Seek(int64(len(data))); err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	v, err, _ := f.c.group.Do(path, func() (interface{}, error) {
		data, err := f.File.ReadAll()
		if err != nil {
			return nil, err
		}
		f.c.store(path, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *cachedFile) ReadString() (string, error) {
	b, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *cachedFile) Write(p []byte) (int, error) {
	f.c.invalidate(f.File.Path())
	return f.File.Write(p)
}

func (f *cachedFile) WriteByte(c byte) error {
	f.c.invalidate(f.File.Path())
	return f.File.WriteByte(c)
}

func (f *cachedFile) WriteString(s string) (int, error) {
	f.c.invalidate(f.File.Path())
	return f.File.WriteString(s)
}

func (f *cachedFile) Remove() error {
	err := f.File.Remove()
	if err == nil {
		f.c.invalidate(f.File.Path())
	}
	return err
}

func (f *cachedFile) Rename(newPath string) error {
	old := f.File.Path()
	err := f.File.Rename(newPath)
	if err == nil {
		f.c.invalidate(old)
	}
	return err
}

func (f *cachedFile) Parent() Folder {
	return &cachedFolder{folderEmbed: f.File.Parent(), c: f.c}
}
