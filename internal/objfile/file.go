package objfile

import (
	"io"
	"time"

	"github.com/hupe1980/storagefs"
)

// file implements storagefs.File as a whole-object memory buffer.
// Reads come from the buffer; writes dirty it; flush and close upload
// it. The buffer exists iff the file is open.
type file struct {
	fs    *FS
	path  string
	mode  storagefs.FileMode
	data  []byte
	pos   int64
	open  bool
	dirty bool
}

var _ storagefs.File = (*file)(nil)

func (f *file) Open(mode storagefs.FileMode) error {
	start := time.Now()
	err := f.openBuffer(mode)
	f.fs.metrics.RecordOpen(time.Since(start), err)
	f.fs.logger.LogOpen(f.path, mode, err)
	return err
}

func (f *file) openBuffer(mode storagefs.FileMode) error {
	if f.open {
		f.discardClose()
	}

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if !mode.Valid() {
		return storagefs.NewError(storagefs.CodeInvalidMode, "invalid file mode")
	}

	key := f.fs.key(f.path)

	switch {
	case mode.Truncates():
		// No download: the next upload replaces the object entirely.
		// Marking dirty makes close create the object even when
		// nothing is written.
		f.data = nil
		f.dirty = true
	default:
		data, err := f.fs.store.Download(f.fs.ctx, key)
		if err != nil {
			if storagefs.CodeOf(err) == storagefs.CodeFileNotFound && mode.Creates() {
				data = nil
				f.dirty = true
			} else {
				return err
			}
		} else {
			f.dirty = false
		}
		f.data = data
	}

	f.mode = mode
	f.pos = 0
	if mode.Appends() {
		f.pos = int64(len(f.data))
	}
	f.open = true
	return nil
}

func (f *file) OpenPath(path string, mode storagefs.FileMode) error {
	f.path = storagefs.CleanPath(path)
	return f.Open(mode)
}

// Close uploads the buffer when it is dirty, then releases it. A
// failed upload leaves the file closed; the buffered data is lost.
func (f *file) Close() error {
	if !f.open {
		return nil // Already closed
	}

	var err error
	if f.dirty {
		err = f.fs.store.Upload(f.fs.ctx, f.fs.key(f.path), f.data)
	}

	f.release()

	if err != nil {
		return storagefs.WrapError(storagefs.CodeCloseError, "failed to upload on close", err)
	}
	return nil
}

// discardClose performs the implicit close inside open, remove and
// rename. The upload is still attempted so data is not silently
// dropped, but its outcome is deliberately not reported.
func (f *file) discardClose() {
	if !f.open {
		return
	}
	if f.dirty {
		_ = f.fs.store.Upload(f.fs.ctx, f.fs.key(f.path), f.data)
	}
	f.release()
}

func (f *file) release() {
	f.data = nil
	f.pos = 0
	f.open = false
	f.dirty = false
}

func (f *file) ChangeMode(mode storagefs.FileMode) error {
	if !f.open {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	// Close and reopen with the new mode. Position resets.
	f.discardClose()
	return f.Open(mode)
}

func (f *file) IsOpen() bool { return f.open }

func (f *file) Read(p []byte) (int, error) {
	if !f.open {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if !f.mode.CanRead() {
		return 0, storagefs.NewError(storagefs.CodeReadError, "file not open for reading")
	}

	if f.pos >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += int64(n)
	f.fs.metrics.RecordRead(n, 0, nil)
	return n, nil
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
	if !f.open {
		return nil, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if len(f.data) == 0 {
		return []byte{}, nil
	}
	if !f.mode.CanRead() {
		return nil, storagefs.NewError(storagefs.CodeReadError, "file not open for reading")
	}

	f.pos = int64(len(f.data))
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (f *file) ReadString() (string, error) {
	b, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *file) Available() (int64, error) {
	if !f.open {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if size := int64(len(f.data)); size > f.pos {
		return size - f.pos, nil
	}
	return 0, nil
}

func (f *file) Seek(offset int64) error {
	if !f.open {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if offset < 0 {
		return storagefs.NewError(storagefs.CodeSeekError, "negative offset")
	}
	f.pos = offset
	return nil
}

func (f *file) Position() (int64, error) {
	if !f.open {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	return f.pos, nil
}

// Size reports the buffer length while open, so unflushed writes are
// visible; otherwise it asks the store.
func (f *file) Size() (int64, error) {
	if f.open {
		return int64(len(f.data)), nil
	}
	return f.fs.store.Head(f.fs.ctx, f.fs.key(f.path))
}

func (f *file) Write(p []byte) (int, error) {
	if !f.open {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if !f.mode.CanWrite() {
		return 0, storagefs.NewError(storagefs.CodeWriteError, "file not open for writing")
	}

	if f.mode.Appends() {
		f.pos = int64(len(f.data))
	}

	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:], p)
	f.pos = end
	f.dirty = true
	f.fs.metrics.RecordWrite(len(p), 0, nil)
	return len(p), nil
}

func (f *file) WriteByte(c byte) error {
	_, err := f.Write([]byte{c})
	return err
}

func (f *file) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Flush uploads the buffer when dirty. The file stays open.
func (f *file) Flush() error {
	if !f.open {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if !f.dirty {
		return nil
	}

	start := time.Now()
	err := f.fs.store.Upload(f.fs.ctx, f.fs.key(f.path), f.data)
	f.fs.metrics.RecordWrite(0, time.Since(start), err)
	if err != nil {
		return err
	}
	f.dirty = false
	return nil
}

func (f *file) Exists() bool {
	if f.path == "" {
		return false
	}
	_, err := f.fs.store.Head(f.fs.ctx, f.fs.key(f.path))
	return err == nil
}

func (f *file) Remove() error {
	f.discardClose()

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}

	start := time.Now()
	err := f.fs.store.Remove(f.fs.ctx, f.fs.key(f.path))
	f.fs.metrics.RecordRemove(time.Since(start), err)
	f.fs.logger.LogRemove(f.path, false, err)
	return err
}

// Rename is copy-then-delete: object stores have no native move.
func (f *file) Rename(newPath string) error {
	f.discardClose()

	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	err := f.rename(newPath)
	f.fs.logger.LogRename(f.path, newPath, err)
	if err != nil {
		return err
	}

	f.path = newPath
	return nil
}

func (f *file) rename(newPath string) error {
	oldKey, newKey := f.fs.key(f.path), f.fs.key(newPath)
	if err := f.fs.store.Copy(f.fs.ctx, oldKey, newKey); err != nil {
		return err
	}
	return f.fs.store.Remove(f.fs.ctx, oldKey)
}

func (f *file) Path() string { return f.path }

func (f *file) Name() string { return storagefs.BasePath(f.path) }

func (f *file) Parent() storagefs.Folder {
	return &folder{fs: f.fs, path: storagefs.ParentPath(f.path)}
}
