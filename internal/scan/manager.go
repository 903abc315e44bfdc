package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when a scan is started while one is in progress.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// ErrNoActiveScan is returned when cancel is called with no scan running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ActiveScan holds live information about the running scan.
type ActiveScan struct {
	ID          int64
	Root        string
	StartedAt   time.Time
	TriggeredBy string
	Progress    *Progress
}

// Manager enforces a single-active-scan invariant for the daemon and
// persists every run to the scan history. It is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	db   *sql.DB
	root string
	opts Options

	active   *ActiveScan
	cancelFn context.CancelFunc
}

// NewManager creates a Manager that scans root with opts.
func NewManager(db *sql.DB, root string, opts Options) *Manager {
	return &Manager{db: db, root: root, opts: opts}
}

// UpdateConfig replaces the root/opts used for future scans. It does not
// affect a currently running scan.
func (m *Manager) UpdateConfig(root string, opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = root
	m.opts = opts
}

// Start launches an asynchronous scan. Returns an ActiveScan snapshot or
// ErrAlreadyRunning if one is already in progress. Cancelling parentCtx
// cancels the scan at the next round barrier; the partial ranking from the
// completed rounds is still recorded, with status 'cancelled'.
func (m *Manager) Start(parentCtx context.Context, triggeredBy string) (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrAlreadyRunning
	}

	// Create the history record now so the ID is available in the HTTP
	// response before the goroutine begins executing.
	startedAt := time.Now()
	scanID, err := insertScanRecord(m.db, m.root, startedAt, triggeredBy, m.opts)
	if err != nil {
		return nil, fmt.Errorf("create scan record: %w", err)
	}

	progress := &Progress{}
	scanCtx, cancel := context.WithCancel(parentCtx)

	active := &ActiveScan{
		ID:          scanID,
		Root:        m.root,
		StartedAt:   startedAt,
		TriggeredBy: triggeredBy,
		Progress:    progress,
	}
	m.active = active
	m.cancelFn = cancel

	root, opts := m.root, m.opts

	go func() {
		entries, stats, runErr := TreeContext(scanCtx, root, opts, progress)

		status := "completed"
		switch {
		case errors.Is(runErr, context.Canceled):
			status = "cancelled"
		case runErr != nil:
			status = "failed"
			slog.Error("scan run error", "id", scanID, "error", runErr)
		}

		finishedAt := time.Now()
		if err := finaliseScanRecord(m.db, scanID, status, stats, startedAt, finishedAt); err != nil {
			slog.Error("finalise scan record", "id", scanID, "error", err)
		}
		if status != "failed" {
			if err := insertScanEntries(m.db, scanID, entries); err != nil {
				slog.Error("insert scan entries", "id", scanID, "error", err)
			}
		}

		slog.Info("scan finished", "id", scanID, "status", status,
			"files_scanned", stats.FilesScanned,
			"dirs_scanned", stats.DirsScanned,
			"errors", stats.Errors)

		m.mu.Lock()
		m.active = nil
		m.cancelFn = nil
		m.mu.Unlock()
	}()

	return active, nil
}

// Cancel stops the currently running scan. Returns ErrNoActiveScan if idle.
func (m *Manager) Cancel() (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveScan
	}

	snap := *m.active
	m.cancelFn()
	return &snap, nil
}

// ActiveScan returns a snapshot of the running scan, or nil when idle.
func (m *Manager) ActiveScan() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	return &snap
}
