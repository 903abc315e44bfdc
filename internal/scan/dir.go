package scan

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bfinder/bfinder/internal/rank"
)

// kind is the classification of a single directory child.
type kind int

const (
	kindOther kind = iota // symlinks, devices, sockets, pipes
	kindFile
	kindDir
)

// scanDir lists dir exactly once, sorts the children by raw byte order so
// traversal is reproducible, and classifies each child with one metadata
// query. Regular files are fed into sel, child directories are appended to
// subdirs, and counters are accumulated into stats. A failing child is
// counted and skipped; it never aborts the scan of its siblings. The
// returned error is non-nil only when dir itself cannot be opened or listed
// at all.
func scanDir(dir string, sel *rank.Selector, stats *Stats, subdirs []string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return subdirs, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil && len(names) == 0 {
		return subdirs, err
	}
	if err != nil {
		// Listing failed midway. Keep the names already read and count the
		// failure; children accounted for so far are not rolled back.
		stats.Errors++
	}
	sort.Strings(names)

	for _, name := range names {
		k, size, cerr := classify(f, name)
		if cerr != nil {
			stats.Errors++
			continue
		}
		switch k {
		case kindFile:
			stats.FilesScanned++
			sel.Add(rank.Entry{Size: size, Path: filepath.Join(dir, name)})
		case kindDir:
			stats.DirsScanned++
			subdirs = append(subdirs, filepath.Join(dir, name))
		}
	}
	return subdirs, nil
}
