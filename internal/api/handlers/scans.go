package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/bfinder/bfinder/internal/scan"
)

// ScansHandler handles scan-related API endpoints.
type ScansHandler struct {
	DB      *sql.DB
	Manager *scan.Manager
}

// scanItem is one scan_history row as returned by List and Get.
type scanItem struct {
	ID              int64   `json:"id"`
	Root            string  `json:"root"`
	StartedAt       string  `json:"started_at"`
	FinishedAt      *string `json:"finished_at"`
	Status          string  `json:"status"`
	TriggeredBy     string  `json:"triggered_by"`
	TopN            int64   `json:"top_n"`
	Workers         int64   `json:"workers"`
	FilesScanned    uint64  `json:"files_scanned"`
	DirsScanned     uint64  `json:"dirs_scanned"`
	Errors          uint64  `json:"errors"`
	DurationSeconds *int64  `json:"duration_seconds"`
}

// rankedEntry is one scan_entries row, largest first.
type rankedEntry struct {
	Rank      int64  `json:"rank"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	Path      string `json:"path"`
}

// Create handles POST /api/scans — triggers a manual scan.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	active, err := h.Manager.Start(context.Background(), "manual")
	if err != nil {
		if errors.Is(err, scan.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "SCAN_ALREADY_RUNNING", "A scan is already in progress")
			return
		}
		slog.Error("scans: start", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start scan")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":           active.ID,
		"root":         active.Root,
		"status":       "running",
		"started_at":   active.StartedAt.UTC().Format(time.RFC3339),
		"triggered_by": active.TriggeredBy,
	})
}

// Cancel handles DELETE /api/scans/current.
func (h *ScansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.Cancel()
	if err != nil {
		if errors.Is(err, scan.ErrNoActiveScan) {
			writeError(w, http.StatusNotFound, "NO_ACTIVE_SCAN", "No scan is currently running")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":         snap.ID,
		"status":     "cancelled",
		"started_at": snap.StartedAt.UTC().Format(time.RFC3339),
	})
}

// List handles GET /api/scans — returns scan history newest first.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	rows, err := h.DB.QueryContext(r.Context(), `
		SELECT id, root, started_at, finished_at, status, triggered_by,
		       top_n, workers, files_scanned, dirs_scanned, errors,
		       duration_seconds
		FROM scan_history
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		slog.Error("scans list: query", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer rows.Close()

	var items []scanItem
	for rows.Next() {
		it, err := scanHistoryRow(rows)
		if err != nil {
			slog.Error("scans list: scan row", "error", err)
			continue
		}
		items = append(items, it)
	}
	if items == nil {
		items = []scanItem{}
	}

	var total int
	h.DB.QueryRowContext(r.Context(), `SELECT COUNT(*) FROM scan_history`).Scan(&total)

	writeJSON(w, http.StatusOK, ListResponse[scanItem]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/scans/:id — one scan plus its ranked entries.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid scan ID")
		return
	}

	row := h.DB.QueryRowContext(r.Context(), `
		SELECT id, root, started_at, finished_at, status, triggered_by,
		       top_n, workers, files_scanned, dirs_scanned, errors,
		       duration_seconds
		FROM scan_history WHERE id = ?`, id)
	it, err := scanHistoryRow(row)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Scan not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	entries := []rankedEntry{}
	entryRows, err := h.DB.QueryContext(r.Context(), `
		SELECT rank, size, path
		FROM scan_entries WHERE scan_id = ?
		ORDER BY rank`, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer entryRows.Close()
	for entryRows.Next() {
		var e rankedEntry
		if err := entryRows.Scan(&e.Rank, &e.Size, &e.Path); err != nil {
			slog.Error("scan entries: scan row", "error", err)
			continue
		}
		e.SizeHuman = humanize.IBytes(uint64(e.Size))
		entries = append(entries, e)
	}

	writeJSON(w, http.StatusOK, struct {
		scanItem
		Entries []rankedEntry `json:"entries"`
	}{scanItem: it, Entries: entries})
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryRow(row rowScanner) (scanItem, error) {
	var (
		it         scanItem
		startedAt  int64
		finishedAt sql.NullInt64
		durSecs    sql.NullInt64
	)
	err := row.Scan(
		&it.ID, &it.Root, &startedAt, &finishedAt, &it.Status, &it.TriggeredBy,
		&it.TopN, &it.Workers, &it.FilesScanned, &it.DirsScanned, &it.Errors,
		&durSecs)
	if err != nil {
		return it, err
	}
	it.StartedAt = time.Unix(startedAt, 0).UTC().Format(time.RFC3339)
	if finishedAt.Valid {
		s := time.Unix(finishedAt.Int64, 0).UTC().Format(time.RFC3339)
		it.FinishedAt = &s
	}
	if durSecs.Valid {
		it.DurationSeconds = &durSecs.Int64
	}
	return it, nil
}
