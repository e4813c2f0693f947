package mem

import (
	"io"
	"time"

	"github.com/hupe1980/storagefs"
)

// file implements storagefs.File on the node tree. The open handle is
// the node pointer plus a position; it exists iff the file is open.
type file struct {
	st   *Storage
	path string
	mode storagefs.FileMode
	node *node
	pos  int64
}

var _ storagefs.File = (*file)(nil)

func (f *file) Open(mode storagefs.FileMode) error {
	err := f.open(mode)
	f.st.logger.LogOpen(f.path, mode, err)
	return err
}

func (f *file) open(mode storagefs.FileMode) error {
	if f.node != nil {
		f.node = nil // implicit close, nothing to report
	}

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if !mode.Valid() {
		return storagefs.NewError(storagefs.CodeInvalidMode, "invalid file mode")
	}

	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	n := f.st.lookup(f.path)
	if n != nil && n.dir {
		return storagefs.NewError(storagefs.CodeOpenError, "path is a directory")
	}

	if n == nil {
		if !mode.Creates() {
			return storagefs.NewError(storagefs.CodeFileNotFound, "failed to open file")
		}
		parent, leaf := f.st.lookupParent(f.path)
		if parent == nil || !parent.dir {
			return storagefs.NewError(storagefs.CodeFileNotFound, "parent folder not found")
		}
		n = newFile(leaf)
		parent.children[leaf] = n
	} else if mode.Truncates() {
		f.st.used -= int64(len(n.data))
		n.data = nil
		n.modTime = time.Now()
	}

	f.node = n
	f.mode = mode
	f.pos = 0
	if mode.Appends() {
		f.pos = int64(len(n.data))
	}
	return nil
}

func (f *file) OpenPath(path string, mode storagefs.FileMode) error {
	f.path = storagefs.CleanPath(path)
	return f.Open(mode)
}

func (f *file) Close() error {
	f.node = nil // nothing buffered, close cannot fail
	return nil
}

func (f *file) ChangeMode(mode storagefs.FileMode) error {
	if f.node == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	f.node = nil
	return f.Open(mode)
}

func (f *file) IsOpen() bool { return f.node != nil }

func (f *file) Read(p []byte) (int, error) {
	if f.node == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if !f.mode.CanRead() {
		return 0, storagefs.NewError(storagefs.CodeReadError, "file not open for reading")
	}

	f.st.mu.RLock()
	defer f.st.mu.RUnlock()

	if f.pos >= int64(len(f.node.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.node.data[f.pos:])
	f.pos += int64(n)
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
	if f.node == nil {
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
	if f.node == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}

	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if size > f.pos {
		return size - f.pos, nil
	}
	return 0, nil
}

func (f *file) Seek(offset int64) error {
	if f.node == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if offset < 0 {
		return storagefs.NewError(storagefs.CodeSeekError, "negative offset")
	}
	f.pos = offset
	return nil
}

func (f *file) Position() (int64, error) {
	if f.node == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	return f.pos, nil
}

func (f *file) Size() (int64, error) {
	f.st.mu.RLock()
	defer f.st.mu.RUnlock()

	n := f.st.lookup(f.path)
	if n == nil || n.dir {
		return 0, storagefs.NewError(storagefs.CodeFileNotFound, "failed to get file size")
	}
	return int64(len(n.data)), nil
}

func (f *file) Write(p []byte) (int, error) {
	if f.node == nil {
		return 0, storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	if !f.mode.CanWrite() {
		return 0, storagefs.NewError(storagefs.CodeWriteError, "file not open for writing")
	}

	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	n := f.node
	if f.mode.Appends() {
		f.pos = int64(len(n.data))
	}

	// Capacity accounting only charges growth beyond the current size.
	end := f.pos + int64(len(p))
	growth := end - int64(len(n.data))
	if growth < 0 {
		growth = 0
	}
	accept := p
	if f.st.capacity > 0 && f.st.used+growth > f.st.capacity {
		room := f.st.capacity - f.st.used + (int64(len(n.data)) - f.pos)
		if room <= 0 {
			return 0, storagefs.NewError(storagefs.CodeStorageFull, "storage full")
		}
		if room < int64(len(p)) {
			accept = p[:room]
		}
	}

	end = f.pos + int64(len(accept))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		f.st.used += end - int64(len(n.data))
		n.data = grown
	}
	copy(n.data[f.pos:], accept)
	n.modTime = time.Now()
	f.pos = end
	return len(accept), nil
}

func (f *file) WriteByte(c byte) error {
	_, err := f.Write([]byte{c})
	return err
}

func (f *file) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *file) Flush() error {
	if f.node == nil {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "file not open")
	}
	return nil // nothing buffered
}

func (f *file) Exists() bool {
	if f.path == "" {
		return false
	}

	f.st.mu.RLock()
	defer f.st.mu.RUnlock()

	n := f.st.lookup(f.path)
	return n != nil && !n.dir
}

func (f *file) Remove() error {
	f.node = nil // implicit close

	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}

	f.st.mu.Lock()
	defer f.st.mu.Unlock()

	parent, leaf := f.st.lookupParent(f.path)
	if parent == nil {
		return storagefs.NewError(storagefs.CodeFileNotFound, "failed to remove file")
	}
	n, ok := parent.children[leaf]
	if !ok || n.dir {
		return storagefs.NewError(storagefs.CodeFileNotFound, "failed to remove file")
	}

	delete(parent.children, leaf)
	f.st.used -= int64(len(n.data))
	return nil
}

func (f *file) Rename(newPath string) error {
	f.node = nil // implicit close

	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(f.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	if err := f.st.rename(f.path, newPath); err != nil {
		return err
	}
	f.path = newPath
	return nil
}

func (f *file) Path() string { return f.path }

func (f *file) Name() string { return storagefs.BasePath(f.path) }

func (f *file) Parent() storagefs.Folder {
	return &folder{st: f.st, path: storagefs.ParentPath(f.path)}
}
