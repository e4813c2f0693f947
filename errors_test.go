package storagefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFallsBackToCodeText(t *testing.T) {
	err := NewError(CodeStorageFull, "")
	assert.Equal(t, "storage full", err.Error())

	err = NewError(CodeStorageFull, "flash partition exhausted")
	assert.Equal(t, "flash partition exhausted", err.Error())
}

func TestErrorMessageClamped(t *testing.T) {
	long := strings.Repeat("x", MaxMessageLen+50)
	err := NewError(CodeWriteError, long)
	assert.Len(t, err.Message, MaxMessageLen)
	assert.Equal(t, long[:MaxMessageLen], err.Error())
}

func TestErrorsIsMatchesOnCode(t *testing.T) {
	err := NewError(CodeFileNotFound, "missing /etc/config")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NotErrorIs(t, err, ErrFolderNotFound)

	// Matching survives fmt wrapping.
	wrapped := fmt.Errorf("during boot: %w", err)
	assert.ErrorIs(t, wrapped, ErrFileNotFound)
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("native backend failure")
	err := WrapError(CodeHardwareError, "controller reset", cause)

	assert.ErrorIs(t, err, ErrHardwareError)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNone, CodeOf(nil))
	assert.Equal(t, CodeSeekError, CodeOf(NewError(CodeSeekError, "")))
	assert.Equal(t, CodeSeekError, CodeOf(fmt.Errorf("wrapped: %w", NewError(CodeSeekError, ""))))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("some foreign error")))
}

func TestCodeStringCoversTaxonomy(t *testing.T) {
	for c := CodeNone; c <= CodeUnknown; c++ {
		require.NotEmpty(t, c.String())
		if c != CodeUnknown {
			assert.NotEqual(t, CodeUnknown.String(), c.String(), "code %d has no own text", c)
		}
	}

	// Out-of-range values degrade to the unknown text.
	assert.Equal(t, "unknown error", Code(200).String())
}
