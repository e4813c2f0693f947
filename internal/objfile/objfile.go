// Package objfile implements the storagefs File and Folder contracts
// on top of a flat object store.
//
// Object stores have no directories and no partial writes, so the
// mapping is by convention: an open file is a memory buffer that is
// uploaded on flush and close, and a folder is a zero-byte marker
// object whose key ends in "/" plus the common prefix it implies.
// Backends supply the Store primitives and keep all SDK specifics to
// themselves.
package objfile

import (
	"context"
	"strings"

	"github.com/hupe1980/storagefs"
)

// Store is the narrow object-store surface the contracts need. All
// methods return errors already mapped to the storagefs taxonomy; a
// missing key reports CodeFileNotFound.
type Store interface {
	// Download fetches the whole object.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload stores the whole object, replacing any previous version.
	Upload(ctx context.Context, key string, data []byte) error

	// Head returns the object size without fetching it.
	Head(ctx context.Context, key string) (int64, error)

	// Remove deletes the object. Removing a missing key is an error.
	Remove(ctx context.Context, key string) error

	// Copy duplicates an object server-side.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Children lists the immediate children under a directory key
	// (empty string for the root): object names and common-prefix
	// names, both without the leading prefix or any trailing slash.
	// Marker objects do not appear as files.
	Children(ctx context.Context, dirKey string) (files, dirs []string, err error)

	// Walk returns every object key under a directory key, marker
	// objects included.
	Walk(ctx context.Context, dirKey string) ([]string, error)
}

// FS binds a Store to a mount point and hands out Files and Folders.
type FS struct {
	store   Store
	ctx     context.Context
	mount   string
	logger  *storagefs.Logger
	metrics storagefs.MetricsCollector
}

// New creates an FS. ctx bounds every store round trip; nil means
// context.Background.
func New(store Store, mount string, ctx context.Context, logger *storagefs.Logger, metrics storagefs.MetricsCollector) *FS {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = storagefs.NoopLogger()
	}
	if metrics == nil {
		metrics = storagefs.NoopMetricsCollector{}
	}
	return &FS{
		store:   store,
		ctx:     ctx,
		mount:   storagefs.CleanPath(mount),
		logger:  logger,
		metrics: metrics,
	}
}

// NewFile returns an unopened File bound to a contract path.
func (fs *FS) NewFile(path string) storagefs.File {
	return &file{fs: fs, path: storagefs.CleanPath(path)}
}

// NewFolder returns a Folder bound to a contract path.
func (fs *FS) NewFolder(path string) storagefs.Folder {
	return &folder{fs: fs, path: storagefs.CleanPath(path)}
}

// Root returns the Folder for the mount point.
func (fs *FS) Root() storagefs.Folder {
	return &folder{fs: fs, path: fs.mount}
}

// key maps a contract path to an object key relative to the mount
// point. The root maps to the empty key.
func (fs *FS) key(path string) string {
	path = storagefs.CleanPath(path)
	if fs.mount != "/" {
		path = strings.TrimPrefix(path, fs.mount)
	}
	return strings.TrimPrefix(path, "/")
}

// markerKey is the zero-byte object that pins an empty directory.
func markerKey(dirKey string) string {
	if dirKey == "" {
		return ""
	}
	return dirKey + "/"
}
