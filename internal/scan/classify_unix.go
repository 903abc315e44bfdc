//go:build unix

package scan

import (
	"os"

	"golang.org/x/sys/unix"
)

// classify resolves one child of the already-open directory dir using a
// single Fstatat call against the directory fd. AT_SYMLINK_NOFOLLOW inspects
// the named entry itself, never a link target, and fetching type and size in
// one query leaves no window for the entry to change between a type check
// and a size check.
func classify(dir *os.File, name string) (kind, int64, error) {
	var st unix.Stat_t
	if err := unix.Fstatat(int(dir.Fd()), name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return kindOther, 0, &os.PathError{Op: "fstatat", Path: name, Err: err}
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return kindFile, st.Size, nil
	case unix.S_IFDIR:
		return kindDir, 0, nil
	default:
		return kindOther, 0, nil
	}
}
