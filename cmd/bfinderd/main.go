package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bfinder/bfinder/internal/api"
	"github.com/bfinder/bfinder/internal/config"
	"github.com/bfinder/bfinder/internal/db"
	"github.com/bfinder/bfinder/internal/scan"
	"github.com/bfinder/bfinder/internal/scheduler"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// ── Logging (initial — reconfigured below once config is loaded) ───────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("bfinderd starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"db_path", cfg.DBPath,
		"scan_path", cfg.ScanPath,
		"top", cfg.Top)

	// ── Database ───────────────────────────────────────────────────────────
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	// Mark any scans that were 'running' when the last process exited as failed.
	if err := scan.MarkStaleScansFailed(database); err != nil {
		slog.Warn("mark stale scans", "error", err)
	}

	// ── Scan manager ───────────────────────────────────────────────────────
	mgr := scan.NewManager(database, cfg.ScanPath, scan.Options{
		TopN:    cfg.Top,
		Workers: cfg.Workers,
	})

	// ── Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New()
	if !cfg.ScanPaused && cfg.Schedule != "" {
		if err := sched.SetJob(cfg.Schedule, func() {
			slog.Info("scheduled scan triggered")
			if _, err := mgr.Start(context.Background(), "schedule"); err != nil {
				slog.Warn("scheduled scan start", "error", err)
			}
		}); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.HTTPAddr, database, mgr, sched, version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("bfinderd stopped")
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
