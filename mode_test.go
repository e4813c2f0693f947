package storagefs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileModeProperties(t *testing.T) {
	tests := []struct {
		mode      FileMode
		canRead   bool
		canWrite  bool
		creates   bool
		truncates bool
		appends   bool
	}{
		{ModeRead, true, false, false, false, false},
		{ModeWrite, false, true, true, true, false},
		{ModeAppend, false, true, true, false, true},
		{ModeReadWrite, true, true, false, false, false},
		{ModeReadWriteCreate, true, true, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.True(t, tt.mode.Valid())
			assert.Equal(t, tt.canRead, tt.mode.CanRead())
			assert.Equal(t, tt.canWrite, tt.mode.CanWrite())
			assert.Equal(t, tt.creates, tt.mode.Creates())
			assert.Equal(t, tt.truncates, tt.mode.Truncates())
			assert.Equal(t, tt.appends, tt.mode.Appends())
		})
	}
}

func TestFileModeInvalid(t *testing.T) {
	m := FileMode(42)
	assert.False(t, m.Valid())
	assert.Equal(t, "INVALID", m.String())
	assert.Equal(t, os.O_RDONLY, m.OSFlags())
}

func TestFileModeOSFlags(t *testing.T) {
	assert.Equal(t, os.O_RDONLY, ModeRead.OSFlags())
	assert.Equal(t, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, ModeWrite.OSFlags())
	assert.Equal(t, os.O_WRONLY|os.O_CREATE|os.O_APPEND, ModeAppend.OSFlags())
	assert.Equal(t, os.O_RDWR, ModeReadWrite.OSFlags())
	assert.Equal(t, os.O_RDWR|os.O_CREATE, ModeReadWriteCreate.OSFlags())
}
