package storagefs

import (
	"errors"
)

// Code identifies a failure kind in the device-independent error
// taxonomy. The set is closed: backends must map every native status
// onto one of these values (CodeUnknown for anything unrecognized).
type Code uint8

const (
	// CodeNone means no error.
	CodeNone Code = iota

	// File/Folder errors
	CodeFileNotFound
	CodeFolderNotFound
	CodeAlreadyExists
	CodeInvalidPath
	CodePermissionDenied

	// I/O errors
	CodeReadError
	CodeWriteError
	CodeSeekError
	CodeOpenError
	CodeCloseError

	// Storage errors
	CodeStorageFull
	CodeStorageNotMounted
	CodeStorageCorrupted
	CodeStorageNotFormatted

	// Operation errors
	CodeInvalidOperation
	CodeInvalidMode
	CodeBufferOverflow
	CodeOutOfMemory
	CodeTimeout

	// Hardware errors
	CodeHardwareError
	CodeNotInitialized

	// Generic
	CodeUnknown
)

var codeText = map[Code]string{
	CodeNone:                "no error",
	CodeFileNotFound:        "file not found",
	CodeFolderNotFound:      "folder not found",
	CodeAlreadyExists:       "already exists",
	CodeInvalidPath:         "invalid path",
	CodePermissionDenied:    "permission denied",
	CodeReadError:           "read error",
	CodeWriteError:          "write error",
	CodeSeekError:           "seek error",
	CodeOpenError:           "open error",
	CodeCloseError:          "close error",
	CodeStorageFull:         "storage full",
	CodeStorageNotMounted:   "storage not mounted",
	CodeStorageCorrupted:    "storage corrupted",
	CodeStorageNotFormatted: "storage not formatted",
	CodeInvalidOperation:    "invalid operation",
	CodeInvalidMode:         "invalid mode",
	CodeBufferOverflow:      "buffer overflow",
	CodeOutOfMemory:         "out of memory",
	CodeTimeout:             "timeout",
	CodeHardwareError:       "hardware error",
	CodeNotInitialized:      "not initialized",
	CodeUnknown:             "unknown error",
}

// String returns the fixed default text for the code.
func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return codeText[CodeUnknown]
}

// MaxMessageLen bounds the explicit message carried by an Error.
// Longer messages are clamped, never rejected.
const MaxMessageLen = 127

// Error is the storage error type. Code is always set to a non-None
// value; Message optionally refines the fixed default text.
//
// Error implements errors.Is matching on Code, so a wrapped backend
// failure compares equal to the package sentinels:
//
//	errors.Is(err, storagefs.ErrStorageFull)
type Error struct {
	Code    Code
	Message string

	cause error
}

// NewError creates an Error with an explicit message. An empty message
// falls back to the code's default text.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: clampMessage(message)}
}

// WrapError creates an Error that records the backend's native failure
// as its cause. The cause stays reachable via errors.Unwrap.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: clampMessage(message), cause: cause}
}

func clampMessage(s string) string {
	if len(s) > MaxMessageLen {
		return s[:MaxMessageLen]
	}
	return s
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// Unwrap returns the backend's native failure, if recorded.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same Code. This
// makes the package sentinels usable with errors.Is regardless of
// message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the taxonomy code from any error. A nil error maps
// to CodeNone; an error without an *Error in its chain maps to
// CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// Sentinels for errors.Is. Comparison is by Code only.
var (
	ErrFileNotFound        = &Error{Code: CodeFileNotFound}
	ErrFolderNotFound      = &Error{Code: CodeFolderNotFound}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists}
	ErrInvalidPath         = &Error{Code: CodeInvalidPath}
	ErrPermissionDenied    = &Error{Code: CodePermissionDenied}
	ErrReadError           = &Error{Code: CodeReadError}
	ErrWriteError          = &Error{Code: CodeWriteError}
	ErrSeekError           = &Error{Code: CodeSeekError}
	ErrOpenError           = &Error{Code: CodeOpenError}
	ErrCloseError          = &Error{Code: CodeCloseError}
	ErrStorageFull         = &Error{Code: CodeStorageFull}
	ErrStorageNotMounted   = &Error{Code: CodeStorageNotMounted}
	ErrStorageCorrupted    = &Error{Code: CodeStorageCorrupted}
	ErrStorageNotFormatted = &Error{Code: CodeStorageNotFormatted}
	ErrInvalidOperation    = &Error{Code: CodeInvalidOperation}
	ErrInvalidMode         = &Error{Code: CodeInvalidMode}
	ErrBufferOverflow      = &Error{Code: CodeBufferOverflow}
	ErrOutOfMemory         = &Error{Code: CodeOutOfMemory}
	ErrTimeout             = &Error{Code: CodeTimeout}
	ErrHardwareError       = &Error{Code: CodeHardwareError}
	ErrNotInitialized      = &Error{Code: CodeNotInitialized}
	ErrUnknown             = &Error{Code: CodeUnknown}
)
