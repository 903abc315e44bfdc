//go:build !unix

package scan

import (
	"os"
	"path/filepath"
)

// classify resolves one child of dir with a single Lstat, which never
// follows symlinks. Platforms without fstatat fall back to a path-based
// query; the one-query-per-entry contract still holds.
func classify(dir *os.File, name string) (kind, int64, error) {
	info, err := os.Lstat(filepath.Join(dir.Name(), name))
	if err != nil {
		return kindOther, 0, err
	}
	switch {
	case info.Mode().IsRegular():
		return kindFile, info.Size(), nil
	case info.IsDir():
		return kindDir, 0, nil
	default:
		return kindOther, 0, nil
	}
}
