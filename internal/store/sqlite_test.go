package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "diary.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepo, id int64) {
	t.Helper()
	err := repo.CreateUser(context.Background(), &domain.User{
		ID: id, TZOffset: 3, CheckStartHour: 9, CheckEndHour: 22, ChecksPerDay: 4,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestCreateUserIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	seedUser(t, repo, 1)
	if err := repo.UpdateTimezone(ctx, 1, 5); err != nil {
		t.Fatalf("update tz: %v", err)
	}
	// Second /start must not reset settings.
	seedUser(t, repo, 1)

	u, err := repo.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.TZOffset != 5 {
		t.Fatalf("want tz offset 5, got %d", u.TZOffset)
	}
}

func TestGetUserNotFound(t *testing.T) {
	repo := openTestRepo(t)
	if _, err := repo.GetUser(context.Background(), 404); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestReplaceChecksLeavesExactlyNewSet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	base := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	first := []time.Time{base, base.Add(2 * time.Hour), base.Add(4 * time.Hour)}
	if err := repo.ReplaceChecks(ctx, 1, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	// One check is consumed before the second run; it must survive as history.
	due, err := repo.DueChecks(ctx, base)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("want 1 due check, got %d", len(due))
	}
	if err := repo.MarkCheckSent(ctx, due[0].ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	second := []time.Time{base.Add(time.Hour), base.Add(3 * time.Hour)}
	if err := repo.ReplaceChecks(ctx, 1, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	unsent, err := repo.UnsentChecks(ctx, 1)
	if err != nil {
		t.Fatalf("unsent: %v", err)
	}
	if len(unsent) != len(second) {
		t.Fatalf("want %d unsent checks, got %d", len(second), len(unsent))
	}
	for i, c := range unsent {
		if !c.ScheduledAt.Equal(second[i]) {
			t.Errorf("check %d: want %v, got %v", i, second[i], c.ScheduledAt)
		}
	}
}

func TestMarkCheckSentIsGuarded(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	at := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	if err := repo.AddCheck(ctx, 1, at); err != nil {
		t.Fatalf("add check: %v", err)
	}
	due, _ := repo.DueChecks(ctx, at)
	if err := repo.MarkCheckSent(ctx, due[0].ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// Marking twice is a no-op, not an error.
	if err := repo.MarkCheckSent(ctx, due[0].ID); err != nil {
		t.Fatalf("second mark sent: %v", err)
	}
	if again, _ := repo.DueChecks(ctx, at.Add(time.Hour)); len(again) != 0 {
		t.Fatalf("consumed check came back due: %v", again)
	}
}

func TestSkipChecksBetweenTouchesOnlyWindow(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	dayStart := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	today := dayStart.Add(10 * time.Hour)
	tomorrow := dayStart.Add(34 * time.Hour)
	if err := repo.ReplaceChecks(ctx, 1, []time.Time{today, tomorrow}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if err := repo.SkipChecksBetween(ctx, 1, dayStart, dayStart.Add(24*time.Hour)); err != nil {
		t.Fatalf("skip: %v", err)
	}

	unsent, err := repo.UnsentChecks(ctx, 1)
	if err != nil {
		t.Fatalf("unsent: %v", err)
	}
	if len(unsent) != 1 || !unsent[0].ScheduledAt.Equal(tomorrow) {
		t.Fatalf("want only tomorrow's check unsent, got %v", unsent)
	}
}

func TestEmotionStats(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)
	seedUser(t, repo, 2)

	now := time.Now().UTC()
	entries := []domain.Entry{
		{UserID: 1, Emotion: "Tense", Category: strptr("Anxiety"), Intensity: intptr(7), CreatedAt: now},
		{UserID: 1, Emotion: "Tense", Category: strptr("Anxiety"), Intensity: intptr(6), CreatedAt: now.Add(-time.Hour)},
		{UserID: 1, Emotion: "Happy", Category: strptr("Joy"), CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: 1, Emotion: "tired as hell", CreatedAt: now.Add(-3 * time.Hour)}, // free text, no category
		{UserID: 2, Emotion: "Calm", CreatedAt: now},                              // other user, excluded
	}
	for i := range entries {
		if err := repo.InsertEntry(ctx, &entries[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	s, err := repo.EmotionStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if s.Total != 4 {
		t.Fatalf("want total 4, got %d", s.Total)
	}
	if len(s.TopEmotions) == 0 || s.TopEmotions[0].Label != "Tense" || s.TopEmotions[0].Count != 2 {
		t.Fatalf("want Tense x2 on top, got %v", s.TopEmotions)
	}
	if len(s.TopCategories) != 2 {
		t.Fatalf("want 2 categories, got %v", s.TopCategories)
	}
	if s.AvgIntensity == nil || *s.AvgIntensity != 6.5 {
		t.Fatalf("want avg intensity 6.5, got %v", s.AvgIntensity)
	}
}

func TestWeeklySummaryExcludesOldEntries(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -7)

	recent := []domain.Entry{
		{UserID: 1, Emotion: "Happy", Category: strptr("Joy"), Reason: strptr("sun"), CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: 1, Emotion: "Calm", Category: strptr("Calm"), CreatedAt: now.AddDate(0, 0, -1)},
		{UserID: 1, Emotion: "Happy", Reason: strptr("sun"), CreatedAt: now.AddDate(0, 0, -1).Add(time.Hour)},
	}
	old := domain.Entry{UserID: 1, Emotion: "Sad", Category: strptr("Sadness"),
		Intensity: intptr(9), Reason: strptr("rain"), CreatedAt: now.AddDate(0, 0, -10)}

	for i := range recent {
		if err := repo.InsertEntry(ctx, &recent[i]); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := repo.InsertEntry(ctx, &old); err != nil {
		t.Fatalf("insert old: %v", err)
	}

	w, err := repo.WeeklySummary(ctx, 1, since)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if w.Total != 3 {
		t.Fatalf("want total 3, got %d", w.Total)
	}
	if w.DaysWithEntries != 2 {
		t.Fatalf("want 2 days with entries, got %d", w.DaysWithEntries)
	}
	if len(w.TopEmotions) == 0 || w.TopEmotions[0].Label != "Happy" {
		t.Fatalf("want Happy on top, got %v", w.TopEmotions)
	}
	for _, c := range w.TopCategories {
		if c.Label == "Sadness" {
			t.Fatal("10-day-old entry leaked into categories")
		}
	}
	if len(w.TopReasons) == 0 || w.TopReasons[0].Label != "sun" || w.TopReasons[0].Count != 2 {
		t.Fatalf("want reason sun x2, got %v", w.TopReasons)
	}
	if w.AvgIntensity != nil {
		t.Fatalf("old entry's intensity leaked into average: %v", *w.AvgIntensity)
	}
	if w.PeakTimeOfDay != "afternoon" {
		t.Fatalf("want afternoon peak, got %q", w.PeakTimeOfDay)
	}
}

func TestListEntriesPagination(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, 1)

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		e := domain.Entry{UserID: 1, Emotion: "e", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.InsertEntry(ctx, &e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	page, err := repo.ListEntries(ctx, 1, 5, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("want 5 entries, got %d", len(page))
	}
	if !page[0].CreatedAt.After(page[4].CreatedAt) {
		t.Fatal("entries not newest-first")
	}

	rest, err := repo.ListEntries(ctx, 1, 5, 5)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("want 2 entries on second page, got %d", len(rest))
	}
}
