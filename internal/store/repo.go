package store

import (
	"context"
	"time"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// Repo defines storage operations for users, diary entries and
// scheduled checks. Pure data access; scheduling and conversation
// policy live above it.
type Repo interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateTimezone(ctx context.Context, id int64, offset int) error
	UpdateWindow(ctx context.Context, id int64, startHour, endHour, checksPerDay int) error
	CompleteOnboarding(ctx context.Context, id int64) error

	InsertEntry(ctx context.Context, e *domain.Entry) error
	ListEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.Entry, error)
	CountEntries(ctx context.Context, userID int64) (int, error)
	// EntryTimes returns entry creation timestamps, newest first.
	// Streak logic derives its distinct-day walk from these.
	EntryTimes(ctx context.Context, userID int64) ([]time.Time, error)
	EmotionStats(ctx context.Context, userID int64) (*domain.Stats, error)
	WeeklySummary(ctx context.Context, userID int64, since time.Time) (*domain.WeeklySummary, error)

	// ReplaceChecks atomically deletes the user's not-yet-sent checks
	// and inserts the new set. Sent rows are history and stay put.
	ReplaceChecks(ctx context.Context, userID int64, times []time.Time) error
	AddCheck(ctx context.Context, userID int64, at time.Time) error
	DueChecks(ctx context.Context, now time.Time) ([]domain.ScheduledCheck, error)
	MarkCheckSent(ctx context.Context, id string) error
	// SkipChecksBetween marks every unsent check scheduled in [from, to)
	// as sent without deleting it.
	SkipChecksBetween(ctx context.Context, userID int64, from, to time.Time) error
	UnsentChecks(ctx context.Context, userID int64) ([]domain.ScheduledCheck, error)

	Close() error
}
