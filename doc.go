// Package storagefs provides a uniform File/Folder abstraction over
// pluggable storage backends for embedded and edge devices.
//
// The package defines the contracts ([File], [Folder], [Storage]) plus
// a stable, device-independent error taxonomy ([Code], [Error]). Each
// concrete backend translates the contract 1:1 into its own primitives
// and maps raw backend status codes onto the taxonomy before returning
// to the caller.
//
// # Quick Start
//
// Local mode (device-resident filesystem, externally mounted):
//
//	st := local.New("/storage")
//	if err := st.Mount(); err != nil { ... }
//	root, _ := st.Root()
//	f, err := root.CreateFile("boot.cfg", storagefs.ModeWrite)
//	if err != nil { ... }
//	f.WriteString("console=ttyS0\n")
//	f.Close()
//
// Remote mode:
//
//	client, _ := sftpfs.Dial("device:22", sshConfig)
//	st := sftpfs.New(client, "/data")
//
// Object storage (S3-compatible):
//
//	st := minio.New(client, "firmware", minio.WithPrefix("devices/42/"))
//
// # Error Model
//
// Every fallible operation returns an ordinary Go error. Backends wrap
// their native failures in [Error] values carrying a [Code] from a
// closed set, so callers can branch without knowing the backend:
//
//	if errors.Is(err, storagefs.ErrFileNotFound) { ... }
//	switch storagefs.CodeOf(err) { ... }
//
// # Backends
//
//   - local: POSIX-like device filesystem rooted at a mount directory
//   - mem: in-memory tree for tests and host-side simulation
//   - sftpfs: remote device filesystem over SFTP
//   - minio, s3: object storage exposed as a mounted filesystem
//
// Decorators at the package root add cross-cutting behavior:
// [NewThrottledStorage] rate-limits I/O (flash wear leveling, remote
// hammering) and [NewCachedStorage] adds a read-through content cache
// for slow backends.
//
// # Concurrency
//
// All operations are synchronous and blocking; there is no
// asynchronous variant and no cancellation primitive above the backend
// layer. A File exclusively owns at most one open backend handle,
// released on close, rename, remove and reopen; a Folder owns no
// persistent backend resource. A single File or Folder value must not
// be used from multiple goroutines without external serialization. Two
// independent values addressing the same path are not synchronized
// with each other.
package storagefs
