// Package mem implements the storagefs contracts on an in-memory node
// tree. It exists for tests and host-side simulation of device
// storage: a configurable capacity makes storage-full behavior
// reproducible, and Format is supported because nothing external owns
// the lifecycle.
package mem

import (
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/storagefs"
)

// node is a file or directory in the tree. Directories hold children;
// files hold data.
type node struct {
	name     string
	dir      bool
	data     []byte
	children map[string]*node
	modTime  time.Time
}

func newDir(name string) *node {
	return &node{
		name:     name,
		dir:      true,
		children: make(map[string]*node),
		modTime:  time.Now(),
	}
}

func newFile(name string) *node {
	return &node{
		name:    name,
		modTime: time.Now(),
	}
}

// Storage is an in-memory backing store. The internal mutex only keeps
// the shared tree coherent; the single-File/Folder-value concurrency
// rules of the package contract still apply.
type Storage struct {
	mu         sync.RWMutex
	root       *node
	used       int64
	capacity   int64 // 0 = unlimited
	mountPoint string
	mounted    bool
	logger     *storagefs.Logger
}

// Option configures a Storage.
type Option func(*Storage)

// WithCapacity bounds the total number of content bytes the store
// accepts. Zero means unlimited.
func WithCapacity(bytes int64) Option {
	return func(s *Storage) { s.capacity = bytes }
}

// WithMountPoint sets the path prefix under which the tree is exposed.
// Defaults to "/".
func WithMountPoint(p string) Option {
	return func(s *Storage) { s.mountPoint = storagefs.CleanPath(p) }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *storagefs.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty in-memory storage.
func New(opts ...Option) *Storage {
	s := &Storage{
		root:       newDir("/"),
		mountPoint: "/",
		logger:     storagefs.NoopLogger().WithBackend("mem"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount marks the store in use. The tree always exists, so this never
// fails.
func (s *Storage) Mount() error {
	s.mounted = true
	s.logger.LogMount(s.mountPoint, nil)
	return nil
}

// Unmount marks the store as not in use.
func (s *Storage) Unmount() error {
	s.mounted = false
	return nil
}

// IsMounted reports whether the store is mounted.
func (s *Storage) IsMounted() bool { return s.mounted }

// MountPoint returns the configured path prefix.
func (s *Storage) MountPoint() string { return s.mountPoint }

// Info returns capacity statistics.
func (s *Storage) Info() (storagefs.StorageInfo, error) {
	if !s.mounted {
		return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info := storagefs.StorageInfo{
		MountPoint: s.mountPoint,
		Type:       "mem",
		UsedBytes:  uint64(s.used),
		Mounted:    true,
	}
	if s.capacity > 0 {
		info.TotalBytes = uint64(s.capacity)
		info.AvailableBytes = uint64(s.capacity - s.used)
	}
	return info, nil
}

// Root returns the Folder for the tree root.
func (s *Storage) Root() (storagefs.Folder, error) {
	if !s.mounted {
		return nil, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return &folder{st: s, path: s.mountPoint}, nil
}

// Format discards the whole tree.
func (s *Storage) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = newDir("/")
	s.used = 0
	return nil
}

// NewFile returns an unopened File bound to path.
func (s *Storage) NewFile(path string) storagefs.File {
	return &file{st: s, path: storagefs.CleanPath(path)}
}

// NewFolder returns a Folder bound to path without checking the tree.
func (s *Storage) NewFolder(path string) storagefs.Folder {
	return &folder{st: s, path: storagefs.CleanPath(path)}
}

// segments splits a contract path into tree segments below the mount
// point.
func (s *Storage) segments(path string) []string {
	path = storagefs.CleanPath(path)
	if s.mountPoint != "/" {
		path = strings.TrimPrefix(path, s.mountPoint)
	}
	path = strings.Trim(path, storagefs.Separator)
	if path == "" {
		return nil
	}
	return strings.Split(path, storagefs.Separator)
}

// lookup resolves a path to its node. Callers hold the lock.
func (s *Storage) lookup(path string) *node {
	cur := s.root
	for _, seg := range s.segments(path) {
		if !cur.dir {
			return nil
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// rename moves a node between tree positions. Replacing an existing
// file mirrors POSIX rename; replacing a directory does not.
func (s *Storage) rename(oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldParent, oldLeaf := s.lookupParent(oldPath)
	if oldParent == nil {
		return storagefs.NewError(storagefs.CodeFileNotFound, "failed to rename")
	}
	n, ok := oldParent.children[oldLeaf]
	if !ok {
		return storagefs.NewError(storagefs.CodeFileNotFound, "failed to rename")
	}

	newParent, newLeaf := s.lookupParent(newPath)
	if newParent == nil || !newParent.dir {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "destination parent not found")
	}
	if existing, ok := newParent.children[newLeaf]; ok {
		if existing.dir {
			return storagefs.NewError(storagefs.CodeInvalidOperation, "destination is a directory")
		}
		s.used -= int64(len(existing.data))
	}

	delete(oldParent.children, oldLeaf)
	n.name = newLeaf
	n.modTime = time.Now()
	newParent.children[newLeaf] = n
	return nil
}

// lookupParent resolves the directory containing path's leaf. Callers
// hold the lock.
func (s *Storage) lookupParent(path string) (*node, string) {
	segs := s.segments(path)
	if len(segs) == 0 {
		return nil, ""
	}

	cur := s.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.children[seg]
		if !ok || !next.dir {
			return nil, ""
		}
		cur = next
	}
	return cur, segs[len(segs)-1]
}
