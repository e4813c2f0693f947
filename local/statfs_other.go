//go:build !unix

package local

import (
	"github.com/hupe1980/storagefs"
)

func (s *Storage) statfs() (storagefs.StorageInfo, error) {
	return storagefs.StorageInfo{}, storagefs.NewError(storagefs.CodeInvalidOperation, "storage statistics unsupported on this platform")
}
