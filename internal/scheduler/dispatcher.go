// Package scheduler runs the three periodic jobs: minute-granularity
// check dispatch, daily schedule resupply, and the weekly digest.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/metrics"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
)

// Notifier is the minimal outbound surface the jobs need. The telegram
// layer implements it.
type Notifier interface {
	SendCheckIn(ctx context.Context, userID int64) error
	SendDigest(ctx context.Context, userID int64, text string) error
}

// Dispatcher polls for due, unsent checks and delivers at most one
// prompt per user per pass.
type Dispatcher struct {
	repo     store.Repo
	log      *zap.Logger
	notifier Notifier
	metrics  *metrics.Collector
	interval time.Duration
	now      func() time.Time
}

func NewDispatcher(repo store.Repo, log *zap.Logger, notifier Notifier, m *metrics.Collector, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		log:      log,
		notifier: notifier,
		metrics:  m,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run loops until ctx is canceled. Ticks are handled sequentially, so a
// pass that overruns the interval delays (never stacks) the next one.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick performs one dispatch pass. Every scanned check is consumed
// (marked sent) whether or not its delivery succeeds: at-most-once,
// best-effort semantics, no retry backlog.
func (d *Dispatcher) tick(ctx context.Context) {
	started := d.now()

	due, err := d.repo.DueChecks(ctx, started)
	if err != nil {
		d.log.Error("due checks query failed", zap.Error(err))
		return
	}

	notified := make(map[int64]bool)
	for _, check := range due {
		if err := d.repo.MarkCheckSent(ctx, check.ID); err != nil {
			d.log.Error("mark check sent failed",
				zap.String("check", check.ID), zap.Error(err))
			continue
		}
		if notified[check.UserID] {
			// Several backed-up checks collapse into one prompt.
			continue
		}
		if err := d.notifier.SendCheckIn(ctx, check.UserID); err != nil {
			d.metrics.SendFailed()
			d.log.Warn("check-in delivery failed",
				zap.Int64("user", check.UserID), zap.Error(err))
			continue
		}
		notified[check.UserID] = true
		d.metrics.CheckSent()
	}

	d.metrics.DispatchPass(time.Since(started))
	if len(due) > 0 {
		d.log.Info("dispatch pass",
			zap.Int("due", len(due)), zap.Int("notified", len(notified)))
	}
}

// sleepUntil blocks until t or context cancellation; it reports false
// when canceled.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextDaily returns the next instant strictly after now at hour:00 UTC.
func nextDaily(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekly returns the next instant strictly after now falling on the
// given weekday at hour:00 UTC.
func nextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := nextDaily(now, hour)
	for next.Weekday() != weekday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
