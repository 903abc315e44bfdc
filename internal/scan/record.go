package scan

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bfinder/bfinder/internal/rank"
)

// insertScanRecord creates a 'running' scan_history row and returns its ID.
func insertScanRecord(db *sql.DB, root string, startedAt time.Time, triggeredBy string, opts Options) (int64, error) {
	opts.applyDefaults()
	now := startedAt.Unix()
	res, err := db.Exec(`
		INSERT INTO scan_history
			(root, status, triggered_by, top_n, workers, started_at, created_at)
		VALUES (?, 'running', ?, ?, ?, ?, ?)`,
		root, triggeredBy, opts.TopN, opts.Workers, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// finaliseScanRecord stores final status and counters for a finished scan.
func finaliseScanRecord(db *sql.DB, scanID int64, status string, stats Stats, startedAt, finishedAt time.Time) error {
	_, err := db.Exec(`
		UPDATE scan_history
		SET status           = ?,
		    finished_at      = ?,
		    duration_seconds = ?,
		    files_scanned    = ?,
		    dirs_scanned     = ?,
		    errors           = ?
		WHERE id = ?`,
		status, finishedAt.Unix(), int64(finishedAt.Sub(startedAt).Seconds()),
		stats.FilesScanned, stats.DirsScanned, stats.Errors, scanID)
	return err
}

// insertScanEntries writes the final ranking for a scan in one transaction.
// Ranks are 1-based and follow the order of entries, which Merge has already
// sorted.
func insertScanEntries(db *sql.DB, scanID int64, entries []rank.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scan_entries (scan_id, rank, size, path)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert entry: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(scanID, i+1, e.Size, e.Path); err != nil {
			return fmt.Errorf("insert entry %q: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

// MarkStaleScansFailed marks any scan_history rows still in 'running' state
// as 'failed'. Called once at daemon startup in case a previous process
// crashed mid-scan.
func MarkStaleScansFailed(db *sql.DB) error {
	res, err := db.Exec(`
		UPDATE scan_history
		SET status = 'failed', finished_at = ?
		WHERE status = 'running'`,
		time.Now().Unix())
	if err != nil {
		return fmt.Errorf("mark stale scans failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("marked stale scans as failed", "count", n)
	}
	return nil
}
