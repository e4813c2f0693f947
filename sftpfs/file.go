package sftpfs

import (
	"io"
	"time"

	"github.com/pkg/sftp"

	"github.com/hupe1980/storagefs"
)

// file implements storagefs.File on a remote handle. fh exists iff the
// file is open.
type file struct {
	st   *Storage
	path string
	mode storagefs.FileMode
	fh   *sftp.File
}

var _ storagefs.File = (*file)(nil)

func (f *file) Open(mode storagefs.FileMode) error {
	start := time.Now()
	err := f.open(mode)
	f.st.metrics.RecordOpen(time.Since(start), err)
	f.st.logger.LogOpen(f.path, mode, err)
	return err
}

func (f *file) open(mode storagefs.FileMode) error {
	if f.fh != nil {
		f.discardClose()
	}

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if !mode.Valid() {
		return storagefs.NewError(storagefs.CodeInvalidMode, "invalid file mode")
	}

	fh, err := f.st.client.OpenFile(f.path, mode.OSFlags())
	if err != nil {
		return mapError(err, false, "failed to open remote file")
	}

	f.fh = fh
	f.mode = mode
	return nil
}

func (f *file) OpenPath(path string, mode storagefs.FileMode) error {
	f.path = storagefs.CleanPath(path)
	return f.Open(mode)
}

func (f *file) Close() error {
	if f.fh == nil {
		return nil // Already closed
	}

	err := f.fh.Close()
	f.fh = nil

	if err != nil {
		return mapError(err, false, "failed to close remote file")
	}
	return nil
}

// discardClose performs the implicit close inside open, remove and
// rename. Its errors are deliberately not reported.
func (f *file) discardClose() {
	if f.fh != nil {
		_ = f.fh.Close()
		f.fh = nil
	}
}

func (f *file) ChangeMode(mode storagefs.FileMode) error {
	if f.fh == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	// Close and reopen with the new mode. Position resets.
	f.discardClose()
	return f.Open(mode)
}

func (f *file) IsOpen() bool { return f.fh != nil }

func (f *file) Read(p []byte) (int, error) {
	if f.fh == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	start := time.Now()
	n, err := f.fh.Read(p)
	if err != nil && err != io.EOF {
		err = mapError(err, false, "read failed")
	}
	f.st.metrics.RecordRead(n, time.Since(start), ignoreEOF(err))
	return n, err
}

func (f *file) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := f.Read(buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return buf[0], nil
}

func (f *file) ReadAll() ([]byte, error) {
	if f.fh == nil {
		return nil, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	if err := f.Seek(0); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	read := 0
	for read < len(buf) {
		n, err := f.Read(buf[read:])
		read += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf[:read], nil
}

func (f *file) ReadString() (string, error) {
	b, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *file) Available() (int64, error) {
	if f.fh == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	pos, err := f.Position()
	if err != nil {
		return 0, err
	}
	if size > pos {
		return size - pos, nil
	}
	return 0, nil
}

func (f *file) Seek(offset int64) error {
	if f.fh == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	if _, err := f.fh.Seek(offset, io.SeekStart); err != nil {
		return storagefs.WrapError(storagefs.CodeSeekError, "seek failed", err)
	}
	return nil
}

func (f *file) Position() (int64, error) {
	if f.fh == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	pos, err := f.fh.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, storagefs.WrapError(storagefs.CodeSeekError, "failed to get position", err)
	}
	return pos, nil
}

func (f *file) Size() (int64, error) {
	info, err := f.st.client.Stat(f.path)
	if err != nil {
		return 0, mapError(err, false, "failed to stat remote file")
	}
	return info.Size(), nil
}

func (f *file) Write(p []byte) (int, error) {
	if f.fh == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	start := time.Now()
	n, err := f.fh.Write(p)
	if err != nil {
		err = mapError(err, false, "write failed")
	}
	f.st.metrics.RecordWrite(n, time.Since(start), err)
	if err != nil && n > 0 {
		// Partial writes surface through the count.
		return n, nil
	}
	return n, err
}

func (f *file) WriteByte(c byte) error {
	_, err := f.Write([]byte{c})
	return err
}

func (f *file) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Flush issues fsync@openssh.com. Servers without the extension report
// an invalid operation.
func (f *file) Flush() error {
	if f.fh == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	if err := f.fh.Sync(); err != nil {
		return mapError(err, false, "flush failed")
	}
	return nil
}

func (f *file) Exists() bool {
	if f.path == "" {
		return false
	}
	info, err := f.st.client.Stat(f.path)
	return err == nil && !info.IsDir()
}

func (f *file) Remove() error {
	f.discardClose()

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}

	start := time.Now()
	err := f.st.client.Remove(f.path)
	if err != nil {
		err = mapError(err, false, "failed to remove remote file")
	}
	f.st.metrics.RecordRemove(time.Since(start), err)
	f.st.logger.LogRemove(f.path, false, err)
	return err
}

func (f *file) Rename(newPath string) error {
	f.discardClose()

	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	// posix-rename@openssh.com replaces an existing target atomically,
	// matching local rename semantics. Plain SSH_FXP_RENAME would
	// refuse.
	err := f.st.client.PosixRename(f.path, newPath)
	f.st.logger.LogRename(f.path, newPath, err)
	if err != nil {
		return mapError(err, false, "failed to rename remote file")
	}

	f.path = newPath
	return nil
}

func (f *file) Path() string { return f.path }

func (f *file) Name() string { return storagefs.BasePath(f.path) }

func (f *file) Parent() storagefs.Folder {
	return &folder{st: f.st, path: storagefs.ParentPath(f.path)}
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
