package sftpfs

import (
	"os"
	"time"

	"github.com/hupe1980/storagefs"
)

// folder implements storagefs.Folder. Directory operations are
// stateless per call: every method is a fresh round trip.
type folder struct {
	st   *Storage
	path string
}

var _ storagefs.Folder = (*folder)(nil)

func (d *folder) Exists() bool {
	if d.path == "" {
		return false
	}
	info, err := d.st.client.Stat(d.path)
	return err == nil && info.IsDir()
}

// Create makes the directory. An existing directory is success; many
// servers report mkdir over an existing path as a bare failure status,
// so existence is checked up front instead of decoded from the error.
func (d *folder) Create() error {
	if err := storagefs.CheckPath(d.path); err != nil {
		return err
	}

	if info, err := d.st.client.Stat(d.path); err == nil {
		if info.IsDir() {
			return nil
		}
		return storagefs.NewError(storagefs.CodeAlreadyExists, "path exists as a file")
	}

	if err := d.st.client.Mkdir(d.path); err != nil {
		return mapError(err, true, "failed to create remote folder")
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
		err = d.removeEmpty()
	}
	d.st.metrics.RecordRemove(time.Since(start), err)
	d.st.logger.LogRemove(d.path, recursive, err)
	return err
}

// removeEmpty refuses a non-empty directory itself rather than relying
// on the server, whose status for that case is the generic failure
// code.
func (d *folder) removeEmpty() error {
	entries, err := d.st.client.ReadDir(d.path)
	if err != nil {
		return mapError(err, true, "failed to open remote directory")
	}
	if len(entries) > 0 {
		return storagefs.NewError(storagefs.CodeInvalidOperation, "directory not empty")
	}

	if err := d.st.client.RemoveDirectory(d.path); err != nil {
		return mapError(err, true, "failed to remove remote folder")
	}
	return nil
}

// removeRecursive deletes depth-first: children of a subdirectory are
// fully removed before the subdirectory itself, and the first failure
// aborts the whole operation without rollback.
func (d *folder) removeRecursive(path string) error {
	entries, err := d.st.client.ReadDir(path)
	if err != nil {
		return mapError(err, true, "failed to open remote directory")
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
			if err := d.st.client.Remove(child); err != nil {
				return mapError(err, false, "failed to remove remote file")
			}
		}
	}

	if err := d.st.client.RemoveDirectory(path); err != nil {
		return mapError(err, true, "failed to remove remote directory")
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

	err := d.st.client.PosixRename(d.path, newPath)
	d.st.logger.LogRename(d.path, newPath, err)
	if err != nil {
		return mapError(err, true, "failed to rename remote folder")
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

// scan is the single directory listing behind every enumeration and
// count.
func (d *folder) scan() ([]os.FileInfo, error) {
	if err := storagefs.CheckPath(d.path); err != nil {
		return nil, err
	}

	start := time.Now()
	entries, err := d.st.client.ReadDir(d.path)
	if err != nil {
		err = mapError(err, true, "failed to open remote directory")
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
