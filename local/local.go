// Package local implements the storagefs contracts on top of a
// device-resident, POSIX-like filesystem rooted at a mount directory.
//
// The mount lifecycle is externally managed (FSTAB-style auto-mount):
// Mount only verifies the mount point is present, and Format is
// unsupported.
package local

import (
	"errors"
	"os"
	"syscall"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/internal/fs"
)

// Storage exposes a directory subtree as a mounted storagefs backend.
type Storage struct {
	mountPoint string
	fsys       fs.FileSystem
	mounted    bool
	logger     *storagefs.Logger
	metrics    storagefs.MetricsCollector
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *storagefs.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(m storagefs.MetricsCollector) Option {
	return func(s *Storage) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a Storage rooted at mountPoint. The directory must
// already exist and be mounted by the platform; see Mount.
func New(mountPoint string, opts ...Option) *Storage {
	s := &Storage{
		mountPoint: storagefs.CleanPath(mountPoint),
		fsys:       fs.Default,
		logger:     storagefs.NoopLogger().WithBackend("local"),
		metrics:    storagefs.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newWithFS injects a FileSystem seam. Used by tests for fault
// injection.
func newWithFS(mountPoint string, fsys fs.FileSystem, opts ...Option) *Storage {
	s := New(mountPoint, opts...)
	s.fsys = fsys
	return s
}

// Mount verifies the mount point exists and is a directory. It never
// creates or formats anything: when the check fails the platform's
// mount configuration is wrong, and the error says so.
func (s *Storage) Mount() error {
	if s.mounted {
		return nil
	}

	info, err := s.fsys.Stat(s.mountPoint)
	if err != nil {
		err = storagefs.WrapError(storagefs.CodeStorageNotMounted,
			"filesystem not mounted; ensure the mount point is configured", err)
		s.logger.LogMount(s.mountPoint, err)
		return err
	}
	if !info.IsDir() {
		err = storagefs.NewError(storagefs.CodeStorageNotMounted, "mount point is not a directory")
		s.logger.LogMount(s.mountPoint, err)
		return err
	}

	s.mounted = true
	s.logger.LogMount(s.mountPoint, nil)
	return nil
}

// Unmount marks the storage as not in use.
func (s *Storage) Unmount() error {
	s.mounted = false
	return nil
}

// IsMounted reports whether the storage is mounted and ready.
func (s *Storage) IsMounted() bool { return s.mounted }

// MountPoint returns the mount point path.
func (s *Storage) MountPoint() string { return s.mountPoint }

// Info returns space statistics for the mounted filesystem.
func (s *Storage) Info() (storagefs.StorageInfo, error) {
	if !s.mounted {
		return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return s.statfs()
}

// Root returns the Folder for the mount point.
func (s *Storage) Root() (storagefs.Folder, error) {
	if !s.mounted {
		return nil, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return &folder{st: s, path: s.mountPoint}, nil
}

// Format is not supported: the filesystem lifecycle is managed by the
// platform's mount configuration, not by this layer.
func (s *Storage) Format() error {
	return storagefs.NewError(storagefs.CodeInvalidOperation, "format not supported with externally managed mounts")
}

// NewFile returns an unopened File bound to path. An empty path yields
// an unbound file that can be bound later via OpenPath.
func (s *Storage) NewFile(path string) storagefs.File {
	return &file{st: s, path: storagefs.CleanPath(path)}
}

// NewFolder returns a Folder bound to path without checking the
// backend.
func (s *Storage) NewFolder(path string) storagefs.Folder {
	return &folder{st: s, path: storagefs.CleanPath(path)}
}

// mapError translates a raw backend failure into the device-independent
// taxonomy. dir selects the not-found flavor by call context.
func mapError(err error, dir bool, msg string) error {
	if err == nil {
		return nil
	}

	notFound := storagefs.CodeFileNotFound
	if dir {
		notFound = storagefs.CodeFolderNotFound
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOTEMPTY:
			return storagefs.WrapError(storagefs.CodeInvalidOperation, msg, err)
		case syscall.ENOSPC:
			return storagefs.WrapError(storagefs.CodeStorageFull, msg, err)
		case syscall.EINVAL:
			return storagefs.WrapError(storagefs.CodeInvalidPath, msg, err)
		case syscall.EIO:
			return storagefs.WrapError(storagefs.CodeHardwareError, msg, err)
		case syscall.ENOMEM:
			return storagefs.WrapError(storagefs.CodeOutOfMemory, msg, err)
		}
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return storagefs.WrapError(notFound, msg, err)
	case errors.Is(err, os.ErrExist):
		return storagefs.WrapError(storagefs.CodeAlreadyExists, msg, err)
	case errors.Is(err, os.ErrPermission):
		return storagefs.WrapError(storagefs.CodePermissionDenied, msg, err)
	}

	return storagefs.WrapError(storagefs.CodeUnknown, msg, err)
}
