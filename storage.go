package storagefs

// StorageInfo describes a mounted backing store.
type StorageInfo struct {
	// MountPoint is the path prefix under which the backend's
	// namespace is exposed.
	MountPoint string

	// Type names the backing store kind ("littlefs", "mem", "sftp",
	// "minio", "s3", ...).
	Type string

	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64

	// BlockSize is the backend's allocation unit, zero when the
	// backend has none.
	BlockSize uint64

	ReadOnly bool
	Mounted  bool
}

// Storage mounts and validates one backing store and hands out the
// Folder for its root.
type Storage interface {
	// Mount verifies the backing store is reachable and marks it
	// in use. Backends whose filesystem lifecycle is externally
	// managed (FSTAB-style auto-mount, an established SFTP session)
	// only validate here; they never create or format anything.
	// Mounting an already-mounted storage is a no-op success.
	Mount() error

	// Unmount marks the storage as no longer in use. It does not
	// tear down externally managed resources.
	Unmount() error

	// IsMounted reports whether Mount succeeded and Unmount has not
	// been called since.
	IsMounted() bool

	// MountPoint returns the path prefix of the backing store.
	MountPoint() string

	// Info returns space statistics for the mounted store. Fails with
	// CodeStorageNotMounted before Mount.
	Info() (StorageInfo, error)

	// Root returns the Folder for the store's root directory. Fails
	// with CodeStorageNotMounted before Mount.
	Root() (Folder, error)

	// Format erases and re-initializes the backing store. Backends
	// with an externally managed lifecycle fail with
	// CodeInvalidOperation; object-store backends implement it as
	// delete-everything-under-prefix.
	Format() error
}
