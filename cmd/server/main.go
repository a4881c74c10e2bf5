package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/feedback-sentiment/internal/audit"
	"github.com/JonMunkholm/feedback-sentiment/internal/config"
	"github.com/JonMunkholm/feedback-sentiment/internal/core"
	"github.com/JonMunkholm/feedback-sentiment/internal/logging"
	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/web"
)

func main() {
	// Load .env if it exists (Overload overwrites existing env vars)
	if err := config.LoadEnvFiles(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"analysis_workers", cfg.Analysis.Workers,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_enabled", cfg.Audit.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	var (
		store     audit.Store = audit.NopStore{}
		pool      *pgxpool.Pool
		scheduler *audit.Scheduler
	)
	if cfg.Audit.Enabled() {
		pool, err = connect(ctx, cfg.Audit)
		if err != nil {
			slog.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := audit.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to create audit schema", "error", err)
			os.Exit(1)
		}
		store = pg

		scheduler, err = audit.NewScheduler(store, cfg.Audit.PurgeSchedule, cfg.Audit.Retention)
		if err != nil {
			slog.Error("failed to create audit scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	limiter := core.NewAnalysisLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	analyzer := core.NewAnalyzer(
		sentiment.NewClassifier(sentiment.NewVaderScorer(cfg.Analysis.StripMarkdown)),
		limiter,
		store,
		core.Options{
			Workers:     cfg.Analysis.Workers,
			MaxBytes:    cfg.Upload.MaxFileSize,
			SampleLines: cfg.Analysis.SampleLines,
			SampleRows:  cfg.Analysis.SampleRows,
			Preferred:   cfg.Analysis.PreferredColumns,
		},
	)

	server := web.NewServer(analyzer, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for analyses to complete", "active", active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := limiter.WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("analyses did not complete in time", "error", err)
		}

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				slog.Warn("audit purge did not stop in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// connect opens and verifies the audit connection pool.
func connect(ctx context.Context, cfg config.AuditConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.DatabaseURL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
