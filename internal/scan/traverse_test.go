package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/bfinder/bfinder/internal/rank"
)

// Scenario: two same-sized files tie-broken by ascending path, one larger
// file ranked first.
func TestTreeTieBrokenByPath(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a", "1.txt"), 500)
	mustWriteFile(t, filepath.Join(root, "a", "2.txt"), 500)
	mustWriteFile(t, filepath.Join(root, "b", "3.txt"), 1000)

	entries, stats, err := Tree(root, Options{TopN: 2, Workers: 4})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}

	want := []rank.Entry{
		{Size: 1000, Path: filepath.Join(root, "b", "3.txt")},
		{Size: 500, Path: filepath.Join(root, "a", "1.txt")},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %v, want %v", entries, want)
	}
	if stats.FilesScanned != 3 {
		t.Errorf("FilesScanned = %d, want 3", stats.FilesScanned)
	}
	if stats.DirsScanned != 2 {
		t.Errorf("DirsScanned = %d, want 2", stats.DirsScanned)
	}
	if stats.Errors != 0 {
		t.Errorf("Errors = %d, want 0", stats.Errors)
	}
}

// buildRandomTree creates a three-level tree with many files of pseudo-random
// sizes (fixed seed, so the tree is the same for every run).
func buildRandomTree(tb testing.TB) string {
	tb.Helper()
	root := tb.TempDir()
	rng := rand.New(rand.NewSource(42))
	for d := 0; d < 6; d++ {
		dir := filepath.Join(root, fmt.Sprintf("d%d", d))
		for s := 0; s < 4; s++ {
			sub := filepath.Join(dir, fmt.Sprintf("s%d", s))
			for f := 0; f < 8; f++ {
				// Deliberately few distinct sizes so ties are common.
				mustWriteFile(tb, filepath.Join(sub, fmt.Sprintf("f%d.dat", f)), rng.Intn(32))
			}
		}
	}
	return root
}

// The ranked output must be bit-identical for any worker count and across
// repeated runs.
func TestTreeDeterministicAcrossWorkers(t *testing.T) {
	root := buildRandomTree(t)

	var want []rank.Entry
	var wantStats Stats
	for _, workers := range []int{1, 2, 3, 8, 32} {
		for run := 0; run < 3; run++ {
			entries, stats, err := Tree(root, Options{TopN: 25, Workers: workers})
			if err != nil {
				t.Fatalf("Tree(workers=%d): %v", workers, err)
			}
			if want == nil {
				want, wantStats = entries, stats
				continue
			}
			if !reflect.DeepEqual(entries, want) {
				t.Fatalf("workers=%d run=%d: output differs:\ngot  %v\nwant %v",
					workers, run, entries, want)
			}
			if stats != wantStats {
				t.Fatalf("workers=%d run=%d: stats = %+v, want %+v", workers, run, stats, wantStats)
			}
		}
	}
}

// The top-N must agree with a full collect-and-sort oracle over WalkDir.
func TestTreeAgreesWithSortOracle(t *testing.T) {
	root := buildRandomTree(t)

	var all []rank.Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			all = append(all, rank.Entry{Size: info.Size(), Path: path})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}
	sort.Slice(all, func(i, j int) bool { return rank.Higher(all[i], all[j]) })

	for _, topN := range []int{1, 10, len(all), len(all) + 50} {
		entries, stats, err := Tree(root, Options{TopN: topN, Workers: 4})
		if err != nil {
			t.Fatalf("Tree(topN=%d): %v", topN, err)
		}
		wantLen := topN
		if wantLen > len(all) {
			wantLen = len(all)
		}
		if !reflect.DeepEqual(entries, all[:wantLen]) {
			t.Errorf("topN=%d: entries disagree with oracle:\ngot  %v\nwant %v",
				topN, entries, all[:wantLen])
		}
		if stats.FilesScanned != uint64(len(all)) {
			t.Errorf("topN=%d: FilesScanned = %d, want %d (every file seen exactly once)",
				topN, stats.FilesScanned, len(all))
		}
	}
}

func TestTreeCapacityZero(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.txt"), 100)
	mustWriteFile(t, filepath.Join(root, "sub", "b.txt"), 200)

	entries, stats, err := Tree(root, Options{TopN: 0, Workers: 2})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty", entries)
	}
	if stats.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2 (counters run even at capacity 0)", stats.FilesScanned)
	}
}

// A symlink to a large regular file is classified Other: never ranked,
// never counted as a file, never followed.
func TestTreeIgnoresSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "big.dat")
	mustWriteFile(t, target, 4096)
	if err := os.Symlink(target, filepath.Join(root, "link-to-big")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, stats, err := Tree(root, Options{TopN: 10, Workers: 2})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != target {
		t.Errorf("entries = %v, want only %q", entries, target)
	}
	if stats.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", stats.FilesScanned)
	}
	if stats.Errors != 0 {
		t.Errorf("Errors = %d, want 0 (symlinks are skipped silently)", stats.Errors)
	}
}

// An unreadable subdirectory is counted as one error; siblings are still
// scanned and the final ranking is unaffected by the failure.
func TestTreeErrorIsolation(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root; permission bits are not enforced")
	}
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "ok", "keep.txt"), 300)
	denied := filepath.Join(root, "denied")
	mustWriteFile(t, filepath.Join(denied, "hidden.txt"), 9000)
	if err := os.Chmod(denied, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(denied, 0o755) })

	entries, stats, err := Tree(root, Options{TopN: 10, Workers: 4})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	// Both directories were discovered and counted even though one failed.
	if stats.DirsScanned != 2 {
		t.Errorf("DirsScanned = %d, want 2", stats.DirsScanned)
	}
	want := []rank.Entry{{Size: 300, Path: filepath.Join(root, "ok", "keep.txt")}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %v, want %v", entries, want)
	}
}

func TestTreeMissingRootIsFatal(t *testing.T) {
	_, _, err := Tree(filepath.Join(t.TempDir(), "does-not-exist"), Options{TopN: 5})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestTreeFileRootIsFatal(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	mustWriteFile(t, file, 1)
	_, _, err := Tree(file, Options{TopN: 5})
	if err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

// Cancellation is observed at the round barrier: a pre-cancelled context
// yields an empty, well-defined partial result and ctx.Err().
func TestTreeContextCancelled(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.txt"), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, stats, err := TreeContext(ctx, root, Options{TopN: 5}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(entries) != 0 || stats.FilesScanned != 0 {
		t.Errorf("expected empty partial result, got entries=%v stats=%+v", entries, stats)
	}
}

func TestTreeReportsProgressAtBarriers(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "d1", "a.txt"), 10)
	mustWriteFile(t, filepath.Join(root, "d2", "b.txt"), 20)

	var progress Progress
	_, stats, err := TreeContext(context.Background(), root, Options{TopN: 5}, &progress)
	if err != nil {
		t.Fatalf("TreeContext: %v", err)
	}
	if got := progress.FilesScanned.Load(); got != stats.FilesScanned {
		t.Errorf("progress FilesScanned = %d, want %d", got, stats.FilesScanned)
	}
	if got := progress.Depth.Load(); got != 2 {
		t.Errorf("progress Depth = %d, want 2", got)
	}
	if got := progress.Frontier.Load(); got != 0 {
		t.Errorf("final Frontier = %d, want 0", got)
	}
}

func TestPartitionCoversAllWithoutOverlap(t *testing.T) {
	dirs := make([]string, 17)
	for i := range dirs {
		dirs[i] = fmt.Sprintf("dir%02d", i)
	}
	for _, workers := range []int{1, 2, 5, 17, 40} {
		batches := partition(dirs, workers)
		if len(batches) > workers {
			t.Errorf("workers=%d: got %d batches", workers, len(batches))
		}
		var flat []string
		for _, b := range batches {
			flat = append(flat, b...)
		}
		if !reflect.DeepEqual(flat, dirs) {
			t.Errorf("workers=%d: batches do not reassemble input: %v", workers, flat)
		}
	}
}
