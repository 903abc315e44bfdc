package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/bfinder/bfinder/internal/scan"
	"github.com/bfinder/bfinder/internal/scheduler"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	DB      *sql.DB
	Manager *scan.Manager
	Sched   *scheduler.Scheduler
	Version string
}

type statusResponse struct {
	Version           string             `json:"version"`
	ActiveScan        *activeScanInfo    `json:"active_scan"`
	Schedule          scheduleInfo       `json:"schedule"`
	LastCompletedScan *completedScanInfo `json:"last_completed_scan"`
}

type activeScanInfo struct {
	ID          int64            `json:"id"`
	Root        string           `json:"root"`
	StartedAt   time.Time        `json:"started_at"`
	TriggeredBy string           `json:"triggered_by"`
	Progress    scanProgressInfo `json:"progress"`
}

type scanProgressInfo struct {
	FilesScanned uint64 `json:"files_scanned"`
	DirsScanned  uint64 `json:"dirs_scanned"`
	Errors       uint64 `json:"errors"`
	Depth        int64  `json:"depth"`
	Frontier     int64  `json:"frontier"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	Paused    bool       `json:"paused"`
	NextRunAt *time.Time `json:"next_run_at"`
}

type completedScanInfo struct {
	ID              int64     `json:"id"`
	Root            string    `json:"root"`
	FinishedAt      time.Time `json:"finished_at"`
	TopN            int64     `json:"top_n"`
	FilesScanned    uint64    `json:"files_scanned"`
	DirsScanned     uint64    `json:"dirs_scanned"`
	Errors          uint64    `json:"errors"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// ServeHTTP returns the daemon status as JSON. Active-scan progress comes
// straight from the Manager's live counters, not from the database.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:           h.Version,
		ActiveScan:        h.activeScan(),
		LastCompletedScan: h.lastCompletedScan(),
	}
	if h.Sched != nil {
		resp.Schedule = scheduleInfo{
			Cron:      h.Sched.CronExpr(),
			Paused:    h.Sched.CronExpr() == "",
			NextRunAt: h.Sched.NextRunAt(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) activeScan() *activeScanInfo {
	if h.Manager == nil {
		return nil
	}
	active := h.Manager.ActiveScan()
	if active == nil {
		return nil
	}
	return &activeScanInfo{
		ID:          active.ID,
		Root:        active.Root,
		StartedAt:   active.StartedAt.UTC(),
		TriggeredBy: active.TriggeredBy,
		Progress: scanProgressInfo{
			FilesScanned: active.Progress.FilesScanned.Load(),
			DirsScanned:  active.Progress.DirsScanned.Load(),
			Errors:       active.Progress.Errors.Load(),
			Depth:        active.Progress.Depth.Load(),
			Frontier:     active.Progress.Frontier.Load(),
		},
	}
}

func (h *StatusHandler) lastCompletedScan() *completedScanInfo {
	if h.DB == nil {
		return nil
	}
	row := h.DB.QueryRow(`
		SELECT id, root, finished_at, top_n,
		       files_scanned, dirs_scanned, errors, duration_seconds
		FROM scan_history
		WHERE status = 'completed'
		ORDER BY finished_at DESC
		LIMIT 1`)

	var (
		info       completedScanInfo
		finishedAt int64
	)
	err := row.Scan(&info.ID, &info.Root, &finishedAt, &info.TopN,
		&info.FilesScanned, &info.DirsScanned, &info.Errors, &info.DurationSeconds)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Error("status: query last scan", "error", err)
		}
		return nil
	}
	info.FinishedAt = time.Unix(finishedAt, 0).UTC()
	return &info
}
