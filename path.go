package storagefs

import (
	"fmt"
	"strings"
)

// Separator is the path separator used by every backend, regardless of
// host platform.
const Separator = "/"

// MaxPathLen is the maximum number of meaningful bytes in a path.
// Compositions that would exceed it fail with CodeBufferOverflow;
// paths are never silently truncated, since a truncated path would
// address the wrong backend object.
const MaxPathLen = 255

// CleanPath strips trailing separators (the root "/" stays "/") and
// collapses duplicate separators. It does not resolve "." or "..".
func CleanPath(p string) string {
	if p == "" {
		return ""
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, Separator)
		if p == "" {
			p = Separator
		}
	}
	return p
}

// CheckPath validates a path for use against a backend: it must be
// non-empty and within MaxPathLen.
func CheckPath(p string) error {
	if p == "" {
		return NewError(CodeInvalidPath, "no path specified")
	}
	if len(p) > MaxPathLen {
		return NewError(CodeBufferOverflow, fmt.Sprintf("path exceeds %d bytes", MaxPathLen))
	}
	return nil
}

// JoinPath composes parent/child. It fails with CodeBufferOverflow
// when the result would exceed MaxPathLen and with CodeInvalidPath on
// an empty child.
func JoinPath(parent, child string) (string, error) {
	if child == "" {
		return "", NewError(CodeInvalidPath, "empty child name")
	}
	parent = CleanPath(parent)
	child = strings.Trim(child, Separator)

	var p string
	switch {
	case parent == "" || parent == Separator:
		p = Separator + child
	default:
		p = parent + Separator + child
	}
	if len(p) > MaxPathLen {
		return "", NewError(CodeBufferOverflow, fmt.Sprintf("path exceeds %d bytes", MaxPathLen))
	}
	return p, nil
}

// ParentPath returns the parent of p. The root's parent is the root
// itself, and a path without a separator also yields the root: both
// mirror "no explicit parent" rather than an error.
func ParentPath(p string) string {
	p = CleanPath(p)
	idx := strings.LastIndex(p, Separator)
	switch {
	case p == Separator || idx < 0:
		return Separator
	case idx == 0:
		return Separator
	default:
		return p[:idx]
	}
}

// BasePath returns the leaf name of p: the substring after the last
// separator. The root returns "/" and a separator-less path returns
// itself.
func BasePath(p string) string {
	p = CleanPath(p)
	if p == Separator {
		return Separator
	}
	idx := strings.LastIndex(p, Separator)
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
