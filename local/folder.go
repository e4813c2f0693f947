package local

import (
	"errors"
	"os"
	"time"

	"github.com/hupe1980/storagefs"
)

// folder implements storagefs.Folder. Directory operations are
// stateless per call: no backend resource outlives a single method.
type folder struct {
	st   *Storage
	path string
}

var _ storagefs.Folder = (*folder)(nil)

func (d *folder) Exists() bool {
	if d.path == "" {
		return false
	}
	info, err := d.st.fsys.Stat(d.path)
	return err == nil && info.IsDir()
}

func (d *folder) Create() error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	err := d.st.fsys.Mkdir(d.path, 0o755)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return mapError(err, true, "failed to create folder")
	}
	return nil
}

func (d *folder) Remove(recursive bool) error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	start := time.Now()
	var err error
	if recursive {
		err = d.removeRecursive(d.path)
	} else {
		if rerr := d.st.fsys.Remove(d.path); rerr != nil {
			err = mapError(rerr, true, "failed to remove folder")
		}
	}
	d.st.metrics.RecordRemove(time.Since(start), err)
	d.st.logger.LogRemove(d.path, recursive, err)
	return err
}

// removeRecursive deletes depth-first: children of a subdirectory are
// fully removed before the subdirectory itself, files are unlinked
// directly, and the first unrecoverable failure aborts the whole
// operation without rollback.
func (d *folder) removeRecursive(path string) error {
	entries, err := d.st.fsys.ReadDir(path)
	if err != nil {
		return mapError(err, true, "failed to open directory")
	}

	for _, entry := range entries {
		child, err := storagefs.JoinPath(path, entry.Name())
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if err := d.removeRecursive(child); err != nil {
				return err
			}
		} else {
			if err := d.st.fsys.Remove(child); err != nil {
				return mapError(err, false, "failed to remove file")
			}
		}
	}

	// Now remove the empty directory itself.
	if err := d.st.fsys.Remove(path); err != nil {
		return mapError(err, true, "failed to remove directory")
	}
	return nil
}

func (d *folder) Rename(newPath string) error {
	newPath = storagefs.CleanPath(newPath)
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}
	if err := storagefs.CheckPath(newPath); err != nil {
		return err
	}

	err := d.st.fsys.Rename(d.path, newPath)
	d.st.logger.LogRename(d.path, newPath, err)
	if err != nil {
		return mapError(err, true, "failed to rename folder")
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

	sub := &folder{st: d.st, path: path}
	if !sub.Exists() {
		return nil, storagefs.NewError(storagefs.CodeFolderNotFound, "folder not found")
	}
	return sub, nil
}

func (d *folder) Files() ([]storagefs.File, error) {
	entries, err := d.scan()
	if err != nil {
		return nil, err
	}

	var files []storagefs.File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path, err := storagefs.JoinPath(d.path, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, &file{st: d.st, path: path})
	}
	return files, nil
}

func (d *folder) Folders() ([]storagefs.Folder, error) {
	entries, err := d.scan()
	if err != nil {
		return nil, err
	}

	var folders []storagefs.Folder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path, err := storagefs.JoinPath(d.path, entry.Name())
		if err != nil {
			return nil, err
		}
		folders = append(folders, &folder{st: d.st, path: path})
	}
	return folders, nil
}

func (d *folder) FileCount() (int, error) {
	entries, err := d.scan()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count, nil
}

func (d *folder) FolderCount() (int, error) {
	entries, err := d.scan()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}
	return count, nil
}

// scan is the single forward directory pass behind every enumeration
// and count. A scan that cannot start yields no partial result.
func (d *folder) scan() ([]os.DirEntry, error) {
	if err := storagefs.CheckPath(d.path); err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := d.st.fsys.ReadDir(d.path)
	if err != nil {
		err = mapError(err, true, "failed to open directory")
	}
	d.st.metrics.RecordList(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *folder) Path() string { return d.path }

func (d *folder) Name() string { return storagefs.BasePath(d.path) }

func (d *folder) Parent() storagefs.Folder {
	return &folder{st: d.st, path: storagefs.ParentPath(d.path)}
}
