package storagefs

// Folder is the uniform directory contract implemented by every
// backend.
//
// A Folder is a namespace: children are addressed by composing the
// folder's path with a child name. It holds no persistent backend
// resource; every call is a self-contained acquire/use/release cycle
// against the backend, and existence is always re-checked rather than
// cached.
type Folder interface {
	// Exists reports whether the path exists and is classified as a
	// directory by the backend.
	Exists() bool

	// Create creates the directory (a single level, not recursive).
	// A directory that already exists is treated as success.
	Create() error

	// Remove deletes the directory. Non-recursive removal of a
	// non-empty directory fails with CodeInvalidOperation and leaves
	// the contents untouched. Recursive removal deletes depth-first;
	// the first unrecoverable backend error aborts immediately, so a
	// partially-deleted subtree is possible and is not rolled back.
	Remove(recursive bool) error

	// Rename moves the directory to newPath. On success the Folder
	// rebinds to newPath.
	Rename(newPath string) error

	// CreateFile composes path/name, constructs a File and opens it
	// under mode. On failure it returns a nil File and the error.
	CreateFile(name string, mode FileMode) (File, error)

	// File composes path/name and returns the File only if it exists
	// and is a file; otherwise it returns nil and CodeFileNotFound.
	// The returned File is closed; open it before use.
	File(name string) (File, error)

	// CreateFolder composes path/name and creates the subfolder. If it
	// already exists and overwrite is false, the existing Folder is
	// returned together with ErrAlreadyExists: the value stays usable,
	// the error is informational. With overwrite, the existing
	// subfolder is recursively removed first, then created fresh.
	CreateFolder(name string, overwrite bool) (Folder, error)

	// Folder composes path/name and returns the subfolder only if it
	// exists; otherwise it returns nil and CodeFolderNotFound.
	Folder(name string) (Folder, error)

	// Files enumerates the immediate child files in one full
	// directory scan. The order is backend-defined. A scan that cannot
	// start returns an empty result and the error, never a partial
	// one.
	Files() ([]File, error)

	// Folders enumerates the immediate child directories, analogous
	// to Files.
	Folders() ([]Folder, error)

	// FileCount counts immediate child files with an independent
	// directory scan.
	FileCount() (int, error)

	// FolderCount counts immediate child directories with an
	// independent directory scan.
	FolderCount() (int, error)

	// Path returns the bound path.
	Path() string

	// Name returns the leaf name of the bound path.
	Name() string

	// Parent returns the parent Folder, derived purely from path math.
	// The parent's existence is not backend-verified, so the returned
	// handle can address a path the backend does not contain.
	Parent() Folder
}

// folderEmbed aliases Folder for decorator types that embed the
// interface while declaring their own Folder method.
type folderEmbed = Folder
