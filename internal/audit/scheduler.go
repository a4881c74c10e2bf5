package audit

// scheduler.go runs the retention job for the audit log.
//
// Records older than the retention window are deleted on a cron schedule.
// A failed purge is logged and retried on the next tick; it never stops the
// service.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSchedule runs the purge once a day at midnight.
const DefaultPurgeSchedule = "@daily"

// DefaultRetention keeps records for 90 days.
const DefaultRetention = 90 * 24 * time.Hour

// purgeTimeout bounds a single purge run.
const purgeTimeout = 5 * time.Minute

// Scheduler purges old audit records periodically.
type Scheduler struct {
	store     Store
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	now       func() time.Time
}

// NewScheduler validates schedule and prepares the purge job. It does not
// start running until Start is called.
func NewScheduler(store Store, schedule string, retention time.Duration) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if retention <= 0 {
		retention = DefaultRetention
	}

	logger := cronLogger{slog.Default().With("component", "audit_scheduler")}
	s := &Scheduler{
		store:     store,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the purge job in the background.
func (s *Scheduler) Start() {
	slog.Info("audit scheduler started",
		"schedule", s.schedule,
		"retention", s.retention.String(),
	)
	s.cron.Start()
}

// Stop halts scheduling and waits for a running purge to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("audit scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one purge and returns the number of deleted records.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	return s.store.PurgeOlderThan(ctx, cutoff)
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	start := time.Now()
	purged, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
		return
	}
	slog.Info("purged audit records",
		"records_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
