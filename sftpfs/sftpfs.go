// Package sftpfs implements the storagefs contracts over SFTP, so a
// remote host's filesystem can stand in for device-local storage.
//
// A Storage either wraps an existing *sftp.Client or dials its own SSH
// connection via Dial. Space statistics require the server to support
// the statvfs@openssh.com extension.
package sftpfs

import (
	"errors"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/hupe1980/storagefs"
)

// Storage exposes a remote directory subtree as a mounted storagefs
// backend.
type Storage struct {
	client     *sftp.Client
	conn       *ssh.Client // owned iff created by Dial
	mountPoint string
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

// New creates a Storage on an existing SFTP client. The caller keeps
// ownership of the client; Unmount will not close it.
func New(client *sftp.Client, mountPoint string, opts ...Option) *Storage {
	s := &Storage{
		client:     client,
		mountPoint: storagefs.CleanPath(mountPoint),
		logger:     storagefs.NoopLogger().WithBackend("sftp"),
		metrics:    storagefs.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial establishes an SSH connection, starts an SFTP subsystem on it
// and returns a Storage that owns both. Unmount closes the connection.
func Dial(network, addr string, config *ssh.ClientConfig, mountPoint string, opts ...Option) (*Storage, error) {
	conn, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, storagefs.WrapError(storagefs.CodeNotInitialized, "failed to dial ssh", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, storagefs.WrapError(storagefs.CodeNotInitialized, "failed to start sftp subsystem", err)
	}

	s := New(client, mountPoint, opts...)
	s.conn = conn
	return s, nil
}

// Mount verifies the remote mount point exists and is a directory.
func (s *Storage) Mount() error {
	if s.mounted {
		return nil
	}

	info, err := s.client.Stat(s.mountPoint)
	if err != nil {
		err = storagefs.WrapError(storagefs.CodeStorageNotMounted,
			"remote path not accessible; check the mount point", err)
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

// Unmount marks the storage as not in use. When the connection was
// established by Dial it is closed here.
func (s *Storage) Unmount() error {
	s.mounted = false

	if s.conn == nil {
		return nil
	}

	errClient := s.client.Close()
	errConn := s.conn.Close()
	s.conn = nil

	if errClient != nil {
		return storagefs.WrapError(storagefs.CodeCloseError, "failed to close sftp client", errClient)
	}
	if errConn != nil {
		return storagefs.WrapError(storagefs.CodeCloseError, "failed to close ssh connection", errConn)
	}
	return nil
}

// IsMounted reports whether the storage is mounted and ready.
func (s *Storage) IsMounted() bool { return s.mounted }

// MountPoint returns the remote mount point path.
func (s *Storage) MountPoint() string { return s.mountPoint }

// Info returns space statistics via the statvfs@openssh.com extension.
// Servers without the extension yield an invalid-operation error.
func (s *Storage) Info() (storagefs.StorageInfo, error) {
	if !s.mounted {
		return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}

	vfs, err := s.client.StatVFS(s.mountPoint)
	if err != nil {
		return storagefs.StorageInfo{}, storagefs.WrapError(storagefs.CodeInvalidOperation,
			"server does not support statvfs", err)
	}

	return storagefs.StorageInfo{
		MountPoint:     s.mountPoint,
		Type:           "sftp",
		TotalBytes:     vfs.Frsize * vfs.Blocks,
		UsedBytes:      vfs.Frsize * (vfs.Blocks - vfs.Bfree),
		AvailableBytes: vfs.Frsize * vfs.Bavail,
		BlockSize:      vfs.Bsize,
		Mounted:        true,
	}, nil
}

// Root returns the Folder for the mount point.
func (s *Storage) Root() (storagefs.Folder, error) {
	if !s.mounted {
		return nil, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return &folder{st: s, path: s.mountPoint}, nil
}

// Format is not supported: the remote filesystem belongs to the server.
func (s *Storage) Format() error {
	return storagefs.NewError(storagefs.CodeInvalidOperation, "format not supported on remote filesystems")
}

// NewFile returns an unopened File bound to path.
func (s *Storage) NewFile(path string) storagefs.File {
	return &file{st: s, path: storagefs.CleanPath(path)}
}

// NewFolder returns a Folder bound to path without contacting the
// server.
func (s *Storage) NewFolder(path string) storagefs.Folder {
	return &folder{st: s, path: storagefs.CleanPath(path)}
}

// mapError translates sftp client failures into the device-independent
// taxonomy. The client already normalises the common status codes to
// os sentinel errors; the rest arrive as *sftp.StatusError.
func mapError(err error, dir bool, msg string) error {
	if err == nil {
		return nil
	}

	notFound := storagefs.CodeFileNotFound
	if dir {
		notFound = storagefs.CodeFolderNotFound
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return storagefs.WrapError(notFound, msg, err)
	case errors.Is(err, os.ErrExist):
		return storagefs.WrapError(storagefs.CodeAlreadyExists, msg, err)
	case errors.Is(err, os.ErrPermission):
		return storagefs.WrapError(storagefs.CodePermissionDenied, msg, err)
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		switch status.FxCode() {
		case sftp.ErrSSHFxOpUnsupported:
			return storagefs.WrapError(storagefs.CodeInvalidOperation, msg, err)
		case sftp.ErrSSHFxNoConnection, sftp.ErrSSHFxConnectionLost:
			return storagefs.WrapError(storagefs.CodeHardwareError, msg, err)
		case sftp.ErrSSHFxFailure:
			// The protocol's catch-all for everything from a full
			// disk to a non-empty directory.
			return storagefs.WrapError(storagefs.CodeHardwareError, msg, err)
		}
	}

	return storagefs.WrapError(storagefs.CodeUnknown, msg, err)
}
