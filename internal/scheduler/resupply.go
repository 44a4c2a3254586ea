package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
	"github.com/osokhneva-debug/emotion-diary-bot/internal/store"
)

// Resupplier regenerates every user's daily schedule, once per day and
// once at startup. Settings changes reuse Reschedule so a new window or
// frequency takes effect immediately.
type Resupplier struct {
	repo    store.Repo
	log     *zap.Logger
	hourUTC int

	mu  sync.Mutex // rand.Rand is not goroutine-safe; settings handlers call in concurrently
	rng *rand.Rand

	now func() time.Time
}

func NewResupplier(repo store.Repo, log *zap.Logger, hourUTC int, rng *rand.Rand) *Resupplier {
	return &Resupplier{
		repo:    repo,
		log:     log,
		hourUTC: hourUTC,
		rng:     rng,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run regenerates all schedules at the configured UTC hour every day.
func (r *Resupplier) Run(ctx context.Context) {
	for {
		if !sleepUntil(ctx, nextDaily(r.now(), r.hourUTC)) {
			r.log.Info("resupplier stopping")
			return
		}
		r.RunOnce(ctx)
	}
}

// RunOnce recomputes and replaces the schedule of every user. Per-user
// failures are logged and skipped; one broken user must not starve the
// rest of the population.
func (r *Resupplier) RunOnce(ctx context.Context) {
	users, err := r.repo.ListUsers(ctx)
	if err != nil {
		r.log.Error("list users failed", zap.Error(err))
		return
	}
	n := 0
	for i := range users {
		if err := r.Reschedule(ctx, &users[i]); err != nil {
			r.log.Warn("reschedule failed",
				zap.Int64("user", users[i].ID), zap.Error(err))
			continue
		}
		n++
	}
	r.log.Info("schedules regenerated", zap.Int("users", n))
}

// Reschedule replaces one user's unsent checks with a fresh set drawn
// for their current local day. Invalid windows are rejected here so the
// generator never sees them.
func (r *Resupplier) Reschedule(ctx context.Context, u *domain.User) error {
	if err := domain.ValidateWindow(u.CheckStartHour, u.CheckEndHour); err != nil {
		return err
	}
	if err := domain.ValidateChecksPerDay(u.ChecksPerDay); err != nil {
		return err
	}

	r.mu.Lock()
	times := domain.CheckTimes(r.rng, r.now(), u.TZOffset, u.CheckStartHour, u.CheckEndHour, u.ChecksPerDay)
	r.mu.Unlock()

	return r.repo.ReplaceChecks(ctx, u.ID, times)
}
