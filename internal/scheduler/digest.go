package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/metrics"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/summary"
)

// Digester sends the weekly digest to every user with at least one
// entry in the trailing seven days.
type Digester struct {
	repo     store.Repo
	log      *zap.Logger
	notifier Notifier
	metrics  *metrics.Collector
	weekday  time.Weekday
	hourUTC  int
	now      func() time.Time
}

func NewDigester(repo store.Repo, log *zap.Logger, notifier Notifier, m *metrics.Collector, weekday time.Weekday, hourUTC int) *Digester {
	return &Digester{
		repo:     repo,
		log:      log,
		notifier: notifier,
		metrics:  m,
		weekday:  weekday,
		hourUTC:  hourUTC,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run fires once a week at the configured weekday and UTC hour.
func (d *Digester) Run(ctx context.Context) {
	for {
		if !sleepUntil(ctx, nextWeekly(d.now(), d.weekday, d.hourUTC)) {
			d.log.Info("digester stopping")
			return
		}
		d.runOnce(ctx)
	}
}

func (d *Digester) runOnce(ctx context.Context) {
	users, err := d.repo.ListUsers(ctx)
	if err != nil {
		d.log.Error("list users failed", zap.Error(err))
		return
	}

	since := d.now().AddDate(0, 0, -7)
	sent := 0
	for _, u := range users {
		w, err := d.repo.WeeklySummary(ctx, u.ID, since)
		if err != nil {
			d.log.Warn("weekly summary failed", zap.Int64("user", u.ID), zap.Error(err))
			continue
		}
		if w.Total == 0 {
			continue
		}
		if err := d.notifier.SendDigest(ctx, u.ID, summary.FormatDigest(w)); err != nil {
			d.metrics.SendFailed()
			d.log.Warn("digest delivery failed", zap.Int64("user", u.ID), zap.Error(err))
			continue
		}
		d.metrics.DigestSent()
		sent++
	}
	d.log.Info("weekly digests sent", zap.Int("count", sent))
}
