package storagefs

import "os"

// FileMode selects how a file is opened and which operations are legal
// while it stays open. Write operations fail under ModeRead; reads
// fail under ModeWrite and ModeAppend.
type FileMode uint8

const (
	// ModeRead opens for reading. The file must exist.
	ModeRead FileMode = iota
	// ModeWrite opens for writing, creating the file if missing and
	// truncating it otherwise.
	ModeWrite
	// ModeAppend opens for writing at the end, creating if missing.
	ModeAppend
	// ModeReadWrite opens for reading and writing. The file must exist.
	ModeReadWrite
	// ModeReadWriteCreate opens for reading and writing, creating if
	// missing.
	ModeReadWriteCreate
)

// String returns the mode name.
func (m FileMode) String() string {
	switch m {
	case ModeRead:
		return "READ"
	case ModeWrite:
		return "WRITE"
	case ModeAppend:
		return "APPEND"
	case ModeReadWrite:
		return "READ_WRITE"
	case ModeReadWriteCreate:
		return "READ_WRITE_CREATE"
	default:
		return "INVALID"
	}
}

// Valid reports whether m is one of the defined modes.
func (m FileMode) Valid() bool {
	return m <= ModeReadWriteCreate
}

// CanRead reports whether reads are legal under m.
func (m FileMode) CanRead() bool {
	return m == ModeRead || m == ModeReadWrite || m == ModeReadWriteCreate
}

// CanWrite reports whether writes are legal under m.
func (m FileMode) CanWrite() bool {
	return m != ModeRead
}

// Creates reports whether opening under m creates a missing file.
func (m FileMode) Creates() bool {
	return m == ModeWrite || m == ModeAppend || m == ModeReadWriteCreate
}

// Truncates reports whether opening under m discards existing content.
func (m FileMode) Truncates() bool {
	return m == ModeWrite
}

// Appends reports whether the initial position is the end of the file.
func (m FileMode) Appends() bool {
	return m == ModeAppend
}

// OSFlags derives the os.OpenFile flag set for m. Backends built on
// POSIX-like open calls (local, sftp) share this table.
func (m FileMode) OSFlags() int {
	switch m {
	case ModeRead:
		return os.O_RDONLY
	case ModeWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeReadWrite:
		return os.O_RDWR
	case ModeReadWriteCreate:
		return os.O_RDWR | os.O_CREATE
	default:
		return os.O_RDONLY
	}
}
