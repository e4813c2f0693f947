// Package s3 implements the storagefs contracts on an Amazon S3
// bucket.
//
// The object mapping matches the minio backend: objects hold file
// contents, folders are zero-byte marker objects plus common prefixes,
// and open files buffer in memory until flush or close. Uploads go
// through the transfer manager so large files are split into multipart
// uploads automatically.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/storagefs"
	"github.com/hupe1980/storagefs/internal/objfile"
)

// Client is the interface for S3 operations, satisfied by *s3.Client.
// Narrowed for mockability; the multipart methods exist so the
// transfer manager can drive it.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// NewDefaultClient builds an S3 client from the default AWS config
// chain (environment, shared config, instance metadata).
func NewDefaultClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, storagefs.WrapError(storagefs.CodeNotInitialized, "failed to load aws config", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Storage exposes a bucket (optionally below a key prefix) as a
// mounted storagefs backend.
type Storage struct {
	client     Client
	uploader   *manager.Uploader
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

// New creates a Storage on an existing S3 client.
func New(client Client, bucket string, opts ...Option) *Storage {
	s := &Storage{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		mountPoint: "/",
		ctx:        context.Background(),
		logger:     storagefs.NoopLogger().WithBackend("s3"),
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

	_, err := s.client.HeadBucket(s.ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		err = storagefs.WrapError(storagefs.CodeStorageNotMounted, "bucket not reachable", err)
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
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(s.ctx)
		if err != nil {
			return storagefs.StorageInfo{}, mapError(err, "failed to list bucket")
		}
		for _, obj := range page.Contents {
			used += uint64(aws.ToInt64(obj.Size))
		}
	}

	return storagefs.StorageInfo{
		MountPoint: s.mountPoint,
		Type:       "s3",
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

// store adapts the S3 client to the objfile.Store primitives.
type store struct {
	s *Storage
}

var _ objfile.Store = (*store)(nil)

func (st *store) objectKey(key string) string {
	return st.s.prefix + key
}

func (st *store) Download(ctx context.Context, key string) ([]byte, error) {
	resp, err := st.s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(st.s.bucket),
		Key:    aws.String(st.objectKey(key)),
	})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapError(err, "failed to read object body")
	}
	return data, nil
}

func (st *store) Upload(ctx context.Context, key string, data []byte) error {
	_, err := st.s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(st.s.bucket),
		Key:    aws.String(st.objectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

func (st *store) Head(ctx context.Context, key string) (int64, error) {
	resp, err := st.s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(st.s.bucket),
		Key:    aws.String(st.objectKey(key)),
	})
	if err != nil {
		return 0, mapError(err, "failed to stat object")
	}
	return aws.ToInt64(resp.ContentLength), nil
}

func (st *store) Remove(ctx context.Context, key string) error {
	// DeleteObject succeeds on missing keys; the contract wants an
	// error, so existence is checked first.
	if _, err := st.Head(ctx, key); err != nil {
		return err
	}

	_, err := st.s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.s.bucket),
		Key:    aws.String(st.objectKey(key)),
	})
	if err != nil {
		return mapError(err, "failed to delete object")
	}
	return nil
}

func (st *store) Copy(ctx context.Context, srcKey, dstKey string) error {
	source := url.PathEscape(st.s.bucket + "/" + st.objectKey(srcKey))
	_, err := st.s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(st.s.bucket),
		Key:        aws.String(st.objectKey(dstKey)),
		CopySource: aws.String(source),
	})
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

	paginator := s3.NewListObjectsV2Paginator(st.s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(st.s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, nil, mapError(err, "failed to list objects")
		}
		for _, obj := range page.Contents {
			rest := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if rest == "" {
				continue // the folder's own marker
			}
			files = append(files, rest)
		}
		for _, cp := range page.CommonPrefixes {
			rest := strings.TrimPrefix(aws.ToString(cp.Prefix), prefix)
			dirs = append(dirs, strings.TrimSuffix(rest, "/"))
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
	paginator := s3.NewListObjectsV2Paginator(st.s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(st.s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapError(err, "failed to list objects")
		}
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.ToString(obj.Key), st.s.prefix))
		}
	}
	return keys, nil
}

// mapError translates S3 API failures into the device-independent
// taxonomy.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return storagefs.WrapError(storagefs.CodeFileNotFound, msg, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return storagefs.WrapError(storagefs.CodeStorageNotMounted, msg, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied":
			return storagefs.WrapError(storagefs.CodePermissionDenied, msg, err)
		case "NoSuchKey", "NotFound":
			return storagefs.WrapError(storagefs.CodeFileNotFound, msg, err)
		case "QuotaExceeded", "EntityTooLarge":
			return storagefs.WrapError(storagefs.CodeStorageFull, msg, err)
		}
	}

	return storagefs.WrapError(storagefs.CodeUnknown, msg, err)
}
