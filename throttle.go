package storagefs

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStorage wraps a Storage and enforces byte-per-second limits
// on reads and writes. Useful when the backing store shares a bus or a
// network link with latency-sensitive traffic.
//
// Limits apply per storage, not per file: all open files drawn from
// the same ThrottledStorage share the two limiters.
type ThrottledStorage struct {
	inner Storage
	read  *rate.Limiter
	write *rate.Limiter
	ctx   context.Context
}

var _ Storage = (*ThrottledStorage)(nil)

// ThrottleOption configures a ThrottledStorage.
type ThrottleOption func(*ThrottledStorage)

// WithThrottleContext bounds limiter waits. Defaults to
// context.Background, meaning a saturated limiter blocks until tokens
// accrue.
func WithThrottleContext(ctx context.Context) ThrottleOption {
	return func(t *ThrottledStorage) {
		if ctx != nil {
			t.ctx = ctx
		}
	}
}

// NewThrottledStorage limits read and write throughput to the given
// bytes per second. A zero or negative limit leaves that direction
// unthrottled.
func NewThrottledStorage(inner Storage, readBytesPerSec, writeBytesPerSec float64, opts ...ThrottleOption) *ThrottledStorage {
	t := &ThrottledStorage{
		inner: inner,
		read:  newByteLimiter(readBytesPerSec),
		write: newByteLimiter(writeBytesPerSec),
		ctx:   context.Background(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newByteLimiter(bytesPerSec float64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	// Burst of one second's quota, but never below a single sector so
	// small reads don't deadlock under tiny limits.
	burst := int(bytesPerSec)
	if burst < 512 {
		burst = 512
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

func (t *ThrottledStorage) Mount() error { return t.inner.Mount() }

func (t *ThrottledStorage) Unmount() error { return t.inner.Unmount() }

func (t *ThrottledStorage) IsMounted() bool { return t.inner.IsMounted() }

func (t *ThrottledStorage) MountPoint() string { return t.inner.MountPoint() }

func (t *ThrottledStorage) Info() (StorageInfo, error) { return t.inner.Info() }

func (t *ThrottledStorage) Root() (Folder, error) {
	root, err := t.inner.Root()
	if err != nil {
		return nil, err
	}
	return &throttledFolder{folderEmbed: root, t: t}, nil
}

func (t *ThrottledStorage) Format() error { return t.inner.Format() }

// wait blocks until n bytes of quota are available on lim. Requests
// larger than the burst are consumed in burst-sized chunks.
func (t *ThrottledStorage) wait(lim *rate.Limiter, n int) error {
	if lim == nil || n <= 0 {
		return nil
	}

	for n > 0 {
		chunk := n
		if chunk > lim.Burst() {
			chunk = lim.Burst()
		}
		if err := lim.WaitN(t.ctx, chunk); err != nil {
			return WrapError(CodeTimeout, "throughput limit wait aborted", err)
		}
		n -= chunk
	}
	return nil
}

// throttledFolder wraps children so files drawn through it inherit the
// limiters. Unlisted methods delegate unchanged.
type throttledFolder struct {
	folderEmbed
	t *ThrottledStorage
}

func (d *throttledFolder) CreateFile(name string, mode FileMode) (File, error) {
	f, err := d.folderEmbed.CreateFile(name, mode)
	if err != nil {
		return nil, err
	}
	return &throttledFile{File: f, t: d.t}, nil
}

func (d *throttledFolder) File(name string) (File, error) {
	f, err := d.folderEmbed.File(name)
	if err != nil {
		return nil, err
	}
	return &throttledFile{File: f, t: d.t}, nil
}

func (d *throttledFolder) CreateFolder(name string, overwrite bool) (Folder, error) {
	sub, err := d.folderEmbed.CreateFolder(name, overwrite)
	if sub != nil {
		sub = &throttledFolder{folderEmbed: sub, t: d.t}
	}
	return sub, err
}

func (d *throttledFolder) Folder(name string) (Folder, error) {
	sub, err := d.folderEmbed.Folder(name)
	if err != nil {
		return nil, err
	}
	return &throttledFolder{folderEmbed: sub, t: d.t}, nil
}

func (d *throttledFolder) Files() ([]File, error) {
	files, err := d.folderEmbed.Files()
	if err != nil {
		return nil, err
	}
	for i, f := range files {
		files[i] = &throttledFile{File: f, t: d.t}
	}
	return files, nil
}

func (d *throttledFolder) Folders() ([]Folder, error) {
	folders, err := d.folderEmbed.Folders()
	if err != nil {
		return nil, err
	}
	for i, sub := range folders {
		folders[i] = &throttledFolder{folderEmbed: sub, t: d.t}
	}
	return folders, nil
}

func (d *throttledFolder) Parent() Folder {
	return &throttledFolder{folderEmbed: d.folderEmbed.Parent(), t: d.t}
}

// throttledFile charges the limiter before each transfer. Methods
// that move no bulk data delegate unchanged.
type throttledFile struct {
	File
	t *ThrottledStorage
}

func (f *throttledFile) Read(p []byte) (int, error) {
	if err := f.t.wait(f.t.read, len(p)); err != nil {
		return 0, err
	}
	return f.File.Read(p)
}

func (f *throttledFile) ReadByte() (byte, error) {
	if err := f.t.wait(f.t.read, 1); err != nil {
		return 0, err
	}
	return f.File.ReadByte()
}

func (f *throttledFile) ReadAll() ([]byte, error) {
	size, err := f.File.Size()
	if err != nil {
		return nil, err
	}
	if err := f.t.wait(f.t.read, int(size)); err != nil {
		return nil, err
	}
	return f.File.ReadAll()
}

func (f *throttledFile) ReadString() (string, error) {
	b, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (f *throttledFile) Write(p []byte) (int, error) {
	if err := f.t.wait(f.t.write, len(p)); err != nil {
		return 0, err
	}
	return f.File.Write(p)
}

func (f *throttledFile) WriteByte(c byte) error {
	if err := f.t.wait(f.t.write, 1); err != nil {
		return err
	}
	return f.File.WriteByte(c)
}

func (f *throttledFile) WriteString(s string) (int, error) {
	if err := f.t.wait(f.t.write, len(s)); err != nil {
		return 0, err
	}
	return f.File.WriteString(s)
}

func (f *throttledFile) Parent() Folder {
	return &throttledFolder{folderEmbed: f.File.Parent(), t: f.t}
}
