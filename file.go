package storagefs

// File is the uniform file contract implemented by every backend.
//
// A File is constructed bound to a path (possibly empty, "unbound")
// and owns at most one open backend handle at a time. The handle
// exists iff IsOpen reports true; Close, Remove, Rename and reopening
// release it deterministically. Operations that require an open handle
// fail with CodeInvalidOperation when the file is closed.
//
// Read returns io.EOF at end of stream, making File a well-behaved
// io.Reader; Write reports partial writes through the byte count, not
// through the error.
type File interface {
	// Open opens the file at its bound path under the given mode. If
	// the file is already open it is implicitly closed first; errors
	// from that implicit close are discarded. Opening an unbound file
	// fails with CodeInvalidPath.
	Open(mode FileMode) error

	// OpenPath rebinds the file to path, then opens it like Open.
	OpenPath(path string, mode FileMode) error

	// Close releases the backend handle. Closing an already-closed
	// file is a no-op success. The handle is released even when the
	// backend reports a close failure; the failure is still returned.
	Close() error

	// ChangeMode closes and reopens the file under a new mode at the
	// same path. The position resets to the mode's default (0, or the
	// end for ModeAppend); it is not a seek-preserving switch. Fails
	// with CodeInvalidOperation if the file is not open.
	ChangeMode(mode FileMode) error

	// IsOpen reports whether the backend handle exists.
	IsOpen() bool

	// Read reads up to len(p) bytes. At end of stream it returns
	// 0, io.EOF.
	Read(p []byte) (int, error)

	// ReadByte reads a single byte. End of stream and failures are
	// reported through the error, never through an ambiguous value.
	ReadByte() (byte, error)

	// ReadAll determines the file size with a fresh stat of the path,
	// seeks to the start and reads exactly that many bytes. A
	// zero-size file yields an empty slice and no error.
	ReadAll() ([]byte, error)

	// ReadString is ReadAll returning a string.
	ReadString() (string, error)

	// Available returns size minus position, clamped to zero.
	Available() (int64, error)

	// Seek moves the position to an absolute offset from the start.
	// Relative and end-relative seeks are not part of the contract.
	Seek(offset int64) error

	// Position returns the current offset from the start.
	Position() (int64, error)

	// Size returns the file size from a fresh stat of the path.
	Size() (int64, error)

	// Write writes len(p) bytes, returning how many were accepted.
	// A short count without an error is a partial write.
	Write(p []byte) (int, error)

	// WriteByte writes a single byte.
	WriteByte(c byte) error

	// WriteString writes a string.
	WriteString(s string) (int, error)

	// Flush forces the backend to persist buffered writes.
	Flush() error

	// Exists reports whether the path exists and is classified as a
	// file by the backend. A same-named directory reports false.
	Exists() bool

	// Remove deletes the file, implicitly closing it first (discarding
	// close errors). Fails with CodeInvalidPath if unbound.
	Remove() error

	// Rename moves the file to newPath, implicitly closing it first.
	// On success the File rebinds to newPath; on failure the bound
	// path is unchanged.
	Rename(newPath string) error

	// Path returns the bound path ("" when unbound).
	Path() string

	// Name returns the leaf name of the bound path.
	Name() string

	// Parent returns the Folder containing this file, derived purely
	// from path math; its existence is not backend-verified.
	Parent() Folder
}
