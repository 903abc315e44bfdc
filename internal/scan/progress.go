package scan

import "sync/atomic"

// Progress holds live counters for a running scan, published at each round
// barrier (the point at which every worker's totals for that depth are
// final). All fields are atomic so the HTTP status handler can read them
// without locks while the traversal runs.
type Progress struct {
	FilesScanned atomic.Uint64
	DirsScanned  atomic.Uint64
	Errors       atomic.Uint64
	Depth        atomic.Int64 // rounds completed so far
	Frontier     atomic.Int64 // directories queued for the next round
}

func (p *Progress) observeRound(total Stats, depth, frontier int) {
	p.FilesScanned.Store(total.FilesScanned)
	p.DirsScanned.Store(total.DirsScanned)
	p.Errors.Store(total.Errors)
	p.Depth.Store(int64(depth))
	p.Frontier.Store(int64(frontier))
}
