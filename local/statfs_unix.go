//go:build unix

package local

import (
	"github.com/hupe1980/storagefs"
	"golang.org/x/sys/unix"
)

func (s *Storage) statfs() (storagefs.StorageInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.mountPoint, &stat); err != nil {
		return storagefs.StorageInfo{}, storagefs.WrapError(storagefs.CodeReadError, "failed to get storage info", err)
	}

	bsize := uint64(stat.Bsize)
	total := bsize * stat.Blocks
	available := bsize * stat.Bavail

	return storagefs.StorageInfo{
		MountPoint:     s.mountPoint,
		Type:           "local",
		TotalBytes:     total,
		UsedBytes:      total - bsize*stat.Bfree,
		AvailableBytes: available,
		BlockSize:      bsize,
		Mounted:        true,
	}, nil
}
