package scan

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/bfinder/bfinder/internal/rank"
)

// Options tunes one traversal.
type Options struct {
	// TopN is the number of largest files to keep. Zero is valid (the
	// ranking stays empty, counters still accumulate); negative is
	// treated as zero.
	TopN int
	// Workers is the scan pool size. Zero or negative means NumCPU.
	Workers int
}

func (o *Options) applyDefaults() {
	if o.TopN < 0 {
		o.TopN = 0
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
}

// Stats are the aggregate counters for one scan. Counters only ever
// increment and are combined by plain summation, so the totals do not
// depend on worker count or aggregation order.
type Stats struct {
	FilesScanned uint64
	DirsScanned  uint64
	Errors       uint64
}

func (s *Stats) add(o Stats) {
	s.FilesScanned += o.FilesScanned
	s.DirsScanned += o.DirsScanned
	s.Errors += o.Errors
}

// Tree scans the directory tree rooted at root to completion and returns
// the opts.TopN largest regular files in final order (size descending, path
// ascending) together with the aggregate counters. The ranked output is
// identical for any worker count and any scheduling.
//
// The returned error is non-nil only when root itself cannot be opened;
// every other failure is counted in Stats.Errors and the scan continues.
func Tree(root string, opts Options) ([]rank.Entry, Stats, error) {
	return TreeContext(context.Background(), root, opts, nil)
}

// TreeContext is Tree with cancellation and live progress reporting for the
// daemon. Cancellation is observed only at the barrier between traversal
// rounds: on cancel the result is the deterministic merge of every round
// that completed, returned alongside ctx.Err(). progress may be nil.
func TreeContext(ctx context.Context, root string, opts Options, progress *Progress) ([]rank.Entry, Stats, error) {
	opts.applyDefaults()

	// The root is the one fatal path: if it cannot be opened as a directory
	// there is no scan at all, and no partial output is produced.
	f, err := os.Open(root)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open root %q: %w", root, err)
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, Stats{}, fmt.Errorf("root %q is not a directory", root)
	}

	var (
		selectors []*rank.Selector
		total     Stats
		depth     int
	)

	frontier := []string{root}
	for len(frontier) > 0 {
		if ctx.Err() != nil {
			return rank.Merge(selectors, opts.TopN), total, ctx.Err()
		}

		// One round: every directory at the current depth is scanned by a
		// bounded pool of workers. Each worker folds one selector and one
		// stats block across its whole batch, so the number of selectors to
		// merge grows with the worker count, not the directory count. The
		// next frontier is the only structure with concurrent writers.
		var (
			mu   sync.Mutex
			next []string
			wg   sync.WaitGroup
		)
		for _, batch := range partition(frontier, opts.Workers) {
			wg.Add(1)
			go func(dirs []string) {
				defer wg.Done()

				sel := rank.NewSelector(opts.TopN)
				var stats Stats
				var subdirs []string
				for _, dir := range dirs {
					var derr error
					subdirs, derr = scanDir(dir, sel, &stats, subdirs)
					if derr != nil {
						// Unreadable directory: its children are simply
						// never discovered.
						stats.Errors++
					}
				}

				mu.Lock()
				selectors = append(selectors, sel)
				total.add(stats)
				next = append(next, subdirs...)
				mu.Unlock()
			}(batch)
		}
		// Barrier: the next depth must not start until every worker has
		// deposited its results for this one.
		wg.Wait()

		depth++
		if progress != nil {
			progress.observeRound(total, depth, len(next))
		}
		frontier = next
	}

	return rank.Merge(selectors, opts.TopN), total, nil
}

// partition splits dirs into at most workers contiguous batches of nearly
// equal length. Fewer directories than workers yields one batch each.
func partition(dirs []string, workers int) [][]string {
	if workers > len(dirs) {
		workers = len(dirs)
	}
	batches := make([][]string, 0, workers)
	for i := 0; i < workers; i++ {
		lo := i * len(dirs) / workers
		hi := (i + 1) * len(dirs) / workers
		if lo < hi {
			batches = append(batches, dirs[lo:hi])
		}
	}
	return batches
}
