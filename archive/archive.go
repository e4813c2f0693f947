// Package archive packs a folder tree into a tar stream and restores
// it again, with optional LZ4 or zstd compression on the stream.
//
// Snapshots are a cheap way to move a device's data partition between
// backends: pack from a local mount, unpack into an object store, or
// the other way around. The tar layout is plain enough that standard
// tooling can inspect the result.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/storagefs"
)

// CompressionType selects the stream compression applied around the
// tar payload.
type CompressionType uint8

const (
	// CompressionNone stores the tar stream as-is.
	CompressionNone CompressionType = iota
	// CompressionLZ4 favors speed over ratio.
	CompressionLZ4
	// CompressionZstd favors ratio at still-reasonable speed.
	CompressionZstd
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Options configures Pack and Unpack.
type Options struct {
	// Compression wraps the tar stream. Both sides must agree; the
	// stream does not self-describe its compression.
	Compression CompressionType
}

// Option modifies Options.
type Option func(*Options)

// WithCompression selects the stream compression.
func WithCompression(c CompressionType) Option {
	return func(o *Options) { o.Compression = c }
}

func applyOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Pack walks root depth-first and writes every folder and file below
// it into a tar stream on w. Entry names are relative to root, using
// forward slashes. Folder entries precede their contents so Unpack
// can restore in a single pass.
func Pack(w io.Writer, root storagefs.Folder, opts ...Option) error {
	o := applyOptions(opts)

	cw, closeCompressor, err := newCompressingWriter(w, o.Compression)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)
	if err := packFolder(tw, root, ""); err != nil {
		_ = tw.Close()
		_ = closeCompressor()
		return err
	}
	if err := tw.Close(); err != nil {
		_ = closeCompressor()
		return storagefs.WrapError(storagefs.CodeWriteError, "failed to finalize archive", err)
	}
	return closeCompressor()
}

func newCompressingWriter(w io.Writer, c CompressionType) (io.Writer, func() error, error) {
	switch c {
	case CompressionNone:
		return w, func() error { return nil }, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, nil, storagefs.WrapError(storagefs.CodeInvalidOperation, "failed to create zstd writer", err)
		}
		return zw, zw.Close, nil
	default:
		return nil, nil, storagefs.NewError(storagefs.CodeInvalidOperation, fmt.Sprintf("unsupported compression type %s", c))
	}
}

func packFolder(tw *tar.Writer, dir storagefs.Folder, rel string) error {
	if rel != "" {
		hdr := &tar.Header{
			Name:     rel + "/",
			Typeflag: tar.TypeDir,
			Mode:     0o755,
			ModTime:  time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return storagefs.WrapError(storagefs.CodeWriteError, "failed to write folder entry", err)
		}
	}

	files, err := dir.Files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := packFile(tw, f, joinRel(rel, f.Name())); err != nil {
			return err
		}
	}

	folders, err := dir.Folders()
	if err != nil {
		return err
	}
	for _, sub := range folders {
		if err := packFolder(tw, sub, joinRel(rel, sub.Name())); err != nil {
			return err
		}
	}
	return nil
}

func packFile(tw *tar.Writer, f storagefs.File, rel string) error {
	if err := f.Open(storagefs.ModeRead); err != nil {
		return err
	}

	data, err := f.ReadAll()
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:     rel,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return storagefs.WrapError(storagefs.CodeWriteError, "failed to write file entry", err)
	}
	if _, err := tw.Write(data); err != nil {
		return storagefs.WrapError(storagefs.CodeWriteError, "failed to write file contents", err)
	}
	return nil
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return rel + "/" + name
}

// Unpack restores an archive produced by Pack into dest. Existing
// files are overwritten; existing folders are merged. The compression
// option must match the one used when packing.
func Unpack(r io.Reader, dest storagefs.Folder, opts ...Option) error {
	o := applyOptions(opts)

	cr, closeDecompressor, err := newDecompressingReader(r, o.Compression)
	if err != nil {
		return err
	}
	defer closeDecompressor()

	tr := tar.NewReader(cr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return storagefs.WrapError(storagefs.CodeReadError, "failed to read archive entry", err)
		}

		name := strings.Trim(hdr.Name, "/")
		if name == "" || name == "." {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if _, err := ensureFolder(dest, name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := unpackFile(tr, dest, name); err != nil {
				return err
			}
		default:
			// Links, devices and the like have no representation in
			// the storage contract.
			return storagefs.NewError(storagefs.CodeInvalidOperation, fmt.Sprintf("unsupported archive entry type %d for %q", hdr.Typeflag, hdr.Name))
		}
	}
}

func newDecompressingReader(r io.Reader, c CompressionType) (io.Reader, func() error, error) {
	switch c {
	case CompressionNone:
		return r, func() error { return nil }, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() error { return nil }, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, storagefs.WrapError(storagefs.CodeInvalidOperation, "failed to create zstd reader", err)
		}
		return zr, func() error { zr.Close(); return nil }, nil
	default:
		return nil, nil, storagefs.NewError(storagefs.CodeInvalidOperation, fmt.Sprintf("unsupported compression type %s", c))
	}
}

// ensureFolder walks rel segment by segment under dest, creating
// missing levels. Archives written by other tools may omit folder
// entries, so file restoration also goes through here.
func ensureFolder(dest storagefs.Folder, rel string) (storagefs.Folder, error) {
	cur := dest
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		sub, err := cur.CreateFolder(seg, false)
		if err != nil && !errors.Is(err, storagefs.ErrAlreadyExists) {
			return nil, err
		}
		cur = sub
	}
	return cur, nil
}

func unpackFile(tr *tar.Reader, dest storagefs.Folder, rel string) error {
	dir := dest
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		var err error
		dir, err = ensureFolder(dest, rel[:idx])
		if err != nil {
			return err
		}
		rel = rel[idx+1:]
	}

	f, err := dir.CreateFile(rel, storagefs.ModeWrite)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(tr)
	if err != nil {
		_ = f.Close()
		return storagefs.WrapError(storagefs.CodeReadError, "failed to read file contents from archive", err)
	}

	for len(data) > 0 {
		n, err := f.Write(data)
		if err != nil {
			_ = f.Close()
			return err
		}
		if n == 0 {
			_ = f.Close()
			return storagefs.NewError(storagefs.CodeWriteError, "file write made no progress")
		}
		data = data[n:]
	}
	return f.Close()
}
