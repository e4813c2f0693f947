package mem

import (
	"github.com/hupe1980/storagefs"
)

// folder implements storagefs.Folder on the node tree.
type folder struct {
	st   *Storage
	path string
}

var _ storagefs.Folder = (*folder)(nil)

func (d *folder) Exists() bool {
	if d.path == "" {
		return false
	}

	d.st.mu.RLock()
	defer d.st.mu.RUnlock()

	n := d.st.lookup(d.path)
	return n != nil && n.dir
}

func (d *folder) Create() error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	d.st.mu.Lock()
	defer d.st.mu.Unlock()

	if existing := d.st.lookup(d.path); existing != nil {
		if existing.dir {
			return nil // already exists, treated as success
		}
		return storagefs.NewError(storagefs.CodeAlreadyExists, "a file with that name exists")
	}

	parent, leaf := d.st.lookupParent(d.path)
	if parent == nil || !parent.dir {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "parent folder not found")
	}
	parent.children[leaf] = newDir(leaf)
	return nil
}

func (d *folder) Remove(recursive bool) error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	d.st.mu.Lock()
	defer d.st.mu.Unlock()

	parent, leaf := d.st.lookupParent(d.path)
	if parent == nil {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "failed to remove folder")
	}
	n, ok := parent.children[leaf]
	if !ok || !n.dir {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "failed to remove folder")
	}

	if !recursive && len(n.children) > 0 {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "directory not empty")
	}

	d.st.used -= subtreeBytes(n)
	delete(parent.children, leaf)
	d.st.logger.LogRemove(d.path, recursive, nil)
	return nil
}

// subtreeBytes walks depth-first so accounting mirrors the recursive
// delete order of the on-disk backends.
func subtreeBytes(n *node) int64 {
	var total int64
	for _, child := range n.children {
		if child.dir {
			total += subtreeBytes(child)
		} else {
			total += int64(len(child.data))
		}
	}
	return total
}

func (d *folder) Rename(newPath string) error {
	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	if err := d.st.rename(d.path, newPath); err != nil {
		return err
	}
	d.path = newPath
	return nil
}

func (d *folder) CreateFile(name string, mode storagefs.FileMode) (storagefs.File, error) {
	path, err := storagefs.JoinPath(d.path, name)
	if err != nil {
		return nil, err
	}

	f := &file{st: d.st, path: path}
	if err := f.Open(mode); err != nil {
		return nil, err
	}
	return f, nil
}

func (d *folder) File(name string) (storagefs.File, error) {
	path, err := storagefs.JoinPath(d.path, name)
	if err != nil {
		return nil, err
	}

	f := &file{st: d.st, path: path}
	if !f.Exists() {
		return nil, storagefs.NewError(storagefs.CodeFileNotFound, "file not found")
	}
	return f, nil
}

func (d *folder) CreateFolder(name string, overwrite bool) (storagefs.Folder, error) {
	path, err := storagefs.JoinPath(d.path, name)
	if err != nil {
		return nil, err
	}

	sub := &folder{st: d.st, path: path}

	if sub.Exists() {
		if !overwrite {
			return sub, storagefs.NewError(storagefs.CodeAlreadyExists, "folder already exists")
		}
		if err := sub.Remove(true); err != nil {
			return nil, err
		}
	}

	if err := sub.Create(); err != nil {
		return nil, err
	}
	return sub, nil
}

func (d *folder) Folder(name string) (storagefs.Folder, error) {
	path, err := storagefs.JoinPath(d.path, name)
	if err != nil {
		return nil, err
	}

	sub := &folder{st: d.st, path: path}
	if !sub.Exists() {
		return nil, storagefs.NewError(storagefs.CodeFolderNotFound, "folder not found")
	}
	return sub, nil
}

func (d *folder) Files() ([]storagefs.File, error) {
	var files []storagefs.File
	err := d.scan(func(child *node, path string) {
		if !child.dir {
			files = append(files, &file{st: d.st, path: path})
		}
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (d *folder) Folders() ([]storagefs.Folder, error) {
	var folders []storagefs.Folder
	err := d.scan(func(child *node, path string) {
		if child.dir {
			folders = append(folders, &folder{st: d.st, path: path})
		}
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (d *folder) FileCount() (int, error) {
	count := 0
	err := d.scan(func(child *node, _ string) {
		if !child.dir {
			count++
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (d *folder) FolderCount() (int, error) {
	count := 0
	err := d.scan(func(child *node, _ string) {
		if child.dir {
			count++
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scan is the single pass over immediate children behind every
// enumeration and count.
func (d *folder) scan(visit func(child *node, path string)) error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	d.st.mu.RLock()
	defer d.st.mu.RUnlock()

	n := d.st.lookup(d.path)
	if n == nil || !n.dir {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "failed to open directory")
	}

	for name, child := range n.children {
		path, err := storagefs.JoinPath(d.path, name)
		if err != nil {
			return err
		}
		visit(child, path)
	}
	return nil
}

func (d *folder) Path() string { return d.path }

func (d *folder) Name() string { return storagefs.BasePath(d.path) }

func (d *folder) Parent() storagefs.Folder {
	return &folder{st: d.st, path: storagefs.ParentPath(d.path)}
}
