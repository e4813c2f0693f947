// Package minio implements the storagefs contracts on a MinIO or
// S3-compatible bucket.
//
// Files and folders are mapped by convention: objects hold file
// contents, folders are zero-byte marker objects plus the common
// prefixes they imply. Open files buffer their contents in memory and
// upload on flush or close.
package minio

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/internal/objfile"
)

// Storage exposes a bucket (optionally below a key prefix) as a
// mounted storagefs backend.
type Storage struct {
	client     *minio.Client
	bucket     string
	prefix     string
	mountPoint string
	mounted    bool
	ctx        context.Context
	logger     *storagefs.Logger
	metrics    storagefs.MetricsCollector
	fs         *objfile.FS
}

// Option configures a Storage.
type Option func(*Storage)

// WithPrefix roots all object keys below a bucket-side prefix, e.g.
// "devices/alpha/".
func WithPrefix(prefix string) Option {
	return func(s *Storage) {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		s.prefix = prefix
	}
}

// WithMountPoint sets the contract-side mount point path. Defaults to
// "/".
func WithMountPoint(mountPoint string) Option {
	return func(s *Storage) {
		s.mountPoint = storagefs.CleanPath(mountPoint)
	}
}

// WithContext bounds every bucket round trip. Defaults to
// context.Background.
func WithContext(ctx context.Context) Option {
	return func(s *Storage) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *storagefs.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to no-op.
func WithMetrics(m storagefs.MetricsCollector) Option {
	return func(s *Storage) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New creates a Storage on an existing MinIO client.
func New(client *minio.Client, bucket string, opts ...Option) *Storage {
	s := &Storage{
		client:     client,
		bucket:     bucket,
		mountPoint: "/",
		ctx:        context.Background(),
		logger:     storagefs.NoopLogger().WithBackend("minio"),
		metrics:    storagefs.NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fs = objfile.New(&store{s}, s.mountPoint, s.ctx, s.logger, s.metrics)
	return s
}

// Mount verifies the bucket exists and is reachable.
func (s *Storage) Mount() error {
	if s.mounted {
		return nil
	}

	exists, err := s.client.BucketExists(s.ctx, s.bucket)
	if err != nil {
		err = storagefs.WrapError(storagefs.CodeStorageNotMounted, "bucket not reachable", err)
		s.logger.LogMount(s.mountPoint, err)
		return err
	}
	if !exists {
		err = storagefs.NewError(storagefs.CodeStorageNotMounted, "bucket does not exist")
		s.logger.LogMount(s.mountPoint, err)
		return err
	}

	s.mounted = true
	s.logger.LogMount(s.mountPoint, nil)
	return nil
}

// Unmount marks the storage as not in use. The client stays open; the
// caller owns it.
func (s *Storage) Unmount() error {
	s.mounted = false
	return nil
}

// IsMounted reports whether the storage is mounted and ready.
func (s *Storage) IsMounted() bool { return s.mounted }

// MountPoint returns the contract-side mount point path.
func (s *Storage) MountPoint() string { return s.mountPoint }

// Info sums object sizes below the prefix. Buckets have no fixed
// capacity, so only usage is reported.
func (s *Storage) Info() (storagefs.StorageInfo, error) {
	if !s.mounted {
		return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}

	var used uint64
	for obj := range s.client.ListObjects(s.ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return storagefs.StorageInfo{}, mapError(obj.Err, "failed to list bucket")
		}
		used += uint64(obj.Size)
	}

	return storagefs.StorageInfo{
		MountPoint: s.mountPoint,
		Type:       "minio",
		UsedBytes:  used,
		Mounted:    true,
	}, nil
}

// Root returns the Folder for the mount point.
func (s *Storage) Root() (storagefs.Folder, error) {
	if !s.mounted {
		return nil, storagefs.NewError(storagefs.CodeStorageNotMounted, "storage not mounted")
	}
	return s.fs.Root(), nil
}

// Format deletes every object below the prefix. The bucket itself is
// untouched.
func (s *Storage) Format() error {
	keys, err := (&store{s}).Walk(s.ctx, "")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := (&store{s}).Remove(s.ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// NewFile returns an unopened File bound to path.
func (s *Storage) NewFile(path string) storagefs.File {
	return s.fs.NewFile(path)
}

// NewFolder returns a Folder bound to path without contacting the
// bucket.
func (s *Storage) NewFolder(path string) storagefs.Folder {
	return s.fs.NewFolder(path)
}

// store adapts the MinIO client to the objfile.Store primitives.
type store struct {
	s *Storage
}

var _ objfile.Store = (*store)(nil)

// objectKey prepends the bucket-side prefix. Trailing slashes of
// marker keys survive, which path.Join would eat.
func (st *store) objectKey(key string) string {
	return st.s.prefix + key
}

func (st *store) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := st.s.client.GetObject(ctx, st.s.bucket, st.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, "failed to read object")
	}
	return data, nil
}

func (st *store) Upload(ctx context.Context, key string, data []byte) error {
	_, err := st.s.client.PutObject(ctx, st.s.bucket, st.objectKey(key),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

func (st *store) Head(ctx context.Context, key string) (int64, error) {
	info, err := st.s.client.StatObject(ctx, st.s.bucket, st.objectKey(key), minio.StatObjectOptions{})
	if err != nil {
		return 0, mapError(err, "failed to stat object")
	}
	return info.Size, nil
}

func (st *store) Remove(ctx context.Context, key string) error {
	// RemoveObject succeeds on missing keys; the contract wants an
	// error, so existence is checked first.
	if _, err := st.Head(ctx, key); err != nil {
		return err
	}

	err := st.s.client.RemoveObject(ctx, st.s.bucket, st.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil {
		return mapError(err, "failed to remove object")
	}
	return nil
}

func (st *store) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := st.s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: st.s.bucket, Object: st.objectKey(dstKey)},
		minio.CopySrcOptions{Bucket: st.s.bucket, Object: st.objectKey(srcKey)},
	)
	if err != nil {
		return mapError(err, "failed to copy object")
	}
	return nil
}

func (st *store) Children(ctx context.Context, dirKey string) (files, dirs []string, err error) {
	prefix := st.s.prefix
	if dirKey != "" {
		prefix += dirKey + "/"
	}

	for obj := range st.s.client.ListObjects(ctx, st.s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, nil, mapError(obj.Err, "failed to list objects")
		}

		rest := strings.TrimPrefix(obj.Key, prefix)
		if rest == "" {
			continue // the folder's own marker
		}
		if strings.HasSuffix(rest, "/") {
			dirs = append(dirs, strings.TrimSuffix(rest, "/"))
		} else {
			files = append(files, rest)
		}
	}
	return files, dirs, nil
}

func (st *store) Walk(ctx context.Context, dirKey string) ([]string, error) {
	prefix := st.s.prefix
	if dirKey != "" {
		prefix += dirKey + "/"
	}

	var keys []string
	for obj := range st.s.client.ListObjects(ctx, st.s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, st.s.prefix))
	}
	return keys, nil
}

// mapError translates MinIO API failures into the device-independent
// taxonomy by response code.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return storagefs.WrapError(storagefs.CodeFileNotFound, msg, err)
	case "NoSuchBucket":
		return storagefs.WrapError(storagefs.CodeStorageNotMounted, msg, err)
	case "AccessDenied":
		return storagefs.WrapError(storagefs.CodePermissionDenied, msg, err)
	case "EntityTooLarge", "QuotaExceeded":
		return storagefs.WrapError(storagefs.CodeStorageFull, msg, err)
	}

	return storagefs.WrapError(storagefs.CodeUnknown, msg, err)
}
