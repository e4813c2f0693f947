package objfile

import (
	"time"

	"github.com/hupe1980/storagefs"
)

// folder implements storagefs.Folder over key prefixes. A folder
// exists when its marker object exists or anything lives under its
// prefix; the root always exists.
type folder struct {
	fs   *FS
	path string
}

var _ storagefs.Folder = (*folder)(nil)

func (d *folder) Exists() bool {
	if d.path == "" {
		return false
	}

	key := d.fs.key(d.path)
	if key == "" {
		return true
	}
	if _, err := d.fs.store.Head(d.fs.ctx, markerKey(key)); err == nil {
		return true
	}

	files, dirs, err := d.fs.store.Children(d.fs.ctx, key)
	return err == nil && (len(files) > 0 || len(dirs) > 0)
}

// Create uploads the marker object. Creating an existing folder is
// success.
func (d *folder) Create() error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	key := d.fs.key(d.path)
	if key == "" {
		return nil // root
	}
	return d.fs.store.Upload(d.fs.ctx, markerKey(key), nil)
}

func (d *folder) Remove(recursive bool) error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	start := time.Now()
	var err error
	if recursive {
		err = d.removeRecursive()
	} else {
		err = d.removeEmpty()
	}
	d.fs.metrics.RecordRemove(time.Since(start), err)
	d.fs.logger.LogRemove(d.path, recursive, err)
	return err
}

func (d *folder) removeEmpty() error {
	if !d.Exists() {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "folder not found")
	}

	key := d.fs.key(d.path)
	files, dirs, err := d.fs.store.Children(d.fs.ctx, key)
	if err != nil {
		return err
	}
	if len(files) > 0 || len(dirs) > 0 {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "directory not empty")
	}

	// Only the marker is left.
	return d.fs.store.Remove(d.fs.ctx, markerKey(key))
}

// removeRecursive deletes every object under the prefix, marker
// objects included. The first failure aborts without rollback; objects
// already deleted stay deleted.
func (d *folder) removeRecursive() error {
	if !d.Exists() {
		return storagefs.NewError(storagefs.CodeFolderNotFound, "folder not found")
	}

	key := d.fs.key(d.path)
	keys, err := d.fs.store.Walk(d.fs.ctx, key)
	if err != nil {
		return err
	}

	for _, k := range keys {
		if err := d.fs.store.Remove(d.fs.ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Rename copies every object under the prefix to the new prefix and
// then deletes the originals. Not atomic; a failure can leave both
// trees partially populated.
func (d *folder) Rename(newPath string) error {
	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	err := d.rename(newPath)
	d.fs.logger.LogRename(d.path, newPath, err)
	if err != nil {
		return err
	}

	d.path = newPath
	return nil
}

func (d *folder) rename(newPath string) error {
	oldKey, newKey := d.fs.key(d.path), d.fs.key(newPath)

	keys, err := d.fs.store.Walk(d.fs.ctx, oldKey)
	if err != nil {
		return err
	}

	oldPrefix, newPrefix := markerKey(oldKey), markerKey(newKey)
	for _, k := range keys {
		dst := newPrefix + k[len(oldPrefix):]
		if err := d.fs.store.Copy(d.fs.ctx, k, dst); err != nil {
			return err
		}
	}
	for _, k := range keys {
		if err := d.fs.store.Remove(d.fs.ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (d *folder) CreateFile(name string, mode storagefs.FileMode) (storagefs.File, error) {
	path, err := storagefs.JoinPath(d.path, name)
	if err != nil {
		return nil, err
	}

	f := &file{fs: d.fs, path: path}
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

	f := &file{fs: d.fs, path: path}
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

	sub := &folder{fs: d.fs, path: path}

	if sub.Exists() {
		if !overwrite {
			// The existing folder stays usable; the error is
			// informational.
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

	sub := &folder{fs: d.fs, path: path}
	if !sub.Exists() {
		return nil, storagefs.NewError(storagefs.CodeFolderNotFound, "folder not found")
	}
	return sub, nil
}

func (d *folder) Files() ([]storagefs.File, error) {
	names, _, err := d.scan()
	if err != nil {
		return nil, err
	}

	var files []storagefs.File
	for _, name := range names {
		path, err := storagefs.JoinPath(d.path, name)
		if err != nil {
			return nil, err
		}
		files = append(files, &file{fs: d.fs, path: path})
	}
	return files, nil
}

func (d *folder) Folders() ([]storagefs.Folder, error) {
	_, names, err := d.scan()
	if err != nil {
		return nil, err
	}

	var folders []storagefs.Folder
	for _, name := range names {
		path, err := storagefs.JoinPath(d.path, name)
		if err != nil {
			return nil, err
		}
		folders = append(folders, &folder{fs: d.fs, path: path})
	}
	return folders, nil
}

func (d *folder) FileCount() (int, error) {
	names, _, err := d.scan()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func (d *folder) FolderCount() (int, error) {
	_, names, err := d.scan()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// scan is the single listing round trip behind every enumeration and
// count.
func (d *folder) scan() (files, dirs []string, err error) {
	if err := storagefs.CheckPath(d.path); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	files, dirs, err = d.fs.store.Children(d.fs.ctx, d.fs.key(d.path))
	d.fs.metrics.RecordList(time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return files, dirs, nil
}

func (d *folder) Path() string { return d.path }

func (d *folder) Name() string { return storagefs.BasePath(d.path) }

func (d *folder) Parent() storagefs.Folder {
	return &folder{fs: d.fs, path: storagefs.ParentPath(d.path)}
}
